package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gmLucario/pet-info-sub000/config"
	"github.com/gmLucario/pet-info-sub000/models"
	"github.com/gmLucario/pet-info-sub000/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	ActionReport = "report"
	ActionQr     = "qr"
	ActionCard   = "card"
)

const (
	linkingPrompt = "Hola! Este número aún no está vinculado a una cuenta. " +
		"Verifica tu teléfono desde la app para recibir recordatorios y consultar a tus mascotas."
	petListHeader = "Tus mascotas"
	petListButton = "Ver opciones"
)

// AccountDirectory resolves inbound phones to accounts and accounts to their
// pets. The gorm-backed implementation lives in gormDirectory; tests use
// fakes.
type AccountDirectory interface {
	GetAccountByPhone(ctx context.Context, phone string) (*models.UserApp, error)
	GetOwnerPets(ctx context.Context, ownerID int64) ([]models.Pet, error)
	OwnsPet(ctx context.Context, ownerID int64, petExternalID uuid.UUID) (bool, error)
}

// ReportGenerator renders the downloadable report for one pet.
type ReportGenerator interface {
	GeneratePetReport(ctx context.Context, petExternalID uuid.UUID) (fileBytes []byte, mimeType string, filename string, err error)
}

// Router turns decoded inbound messages into replies. A text from a known
// account gets the interactive pet list; a list selection gets the action its
// row id encodes.
type Router struct {
	directory AccountDirectory
	gateway   Gateway
	reports   ReportGenerator
}

func NewRouter(directory AccountDirectory, gateway Gateway, reports ReportGenerator) *Router {
	return &Router{
		directory: directory,
		gateway:   gateway,
		reports:   reports,
	}
}

// Route handles a single inbound message. Errors are returned for the caller
// to log; a failure here never affects the other messages of the batch.
func (r *Router) Route(ctx context.Context, msg *Message) error {
	switch msg.Type {
	case MessageTypeText:
		return r.routeText(ctx, msg)
	case MessageTypeInteractive:
		return r.routeInteractive(ctx, msg)
	default:
		config.GetLogger().WithField("type", msg.Type).Info("ignoring unsupported inbound message type")
		return nil
	}
}

func (r *Router) routeText(ctx context.Context, msg *Message) error {
	account, err := r.directory.GetAccountByPhone(ctx, msg.From)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return r.gateway.SendText(ctx, msg.From, linkingPrompt)
		}
		return fmt.Errorf("account lookup for inbound text: %w", err)
	}

	pets, err := r.directory.GetOwnerPets(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("list pets for account %d: %w", account.ID, err)
	}
	if len(pets) == 0 {
		return r.gateway.SendText(ctx, msg.From, "Aún no tienes mascotas registradas.")
	}

	rows := make([]ListRow, 0, len(pets)*3)
	for _, pet := range pets {
		id := pet.ExternalID.String()
		rows = append(rows,
			ListRow{ID: ActionReport + ":" + id, Title: pet.PetName, Description: "Reporte completo"},
			ListRow{ID: ActionQr + ":" + id, Title: pet.PetName, Description: "Código QR"},
			ListRow{ID: ActionCard + ":" + id, Title: pet.PetName, Description: "Tarjeta pública"},
		)
	}

	return r.gateway.SendInteractiveList(ctx, msg.From, petListHeader,
		"Elige qué quieres consultar de cada mascota.", petListButton, rows)
}

func (r *Router) routeInteractive(ctx context.Context, msg *Message) error {
	logger := config.GetLogger()
	token := msg.Interactive.ReplyID()

	verb, target, err := ParseActionToken(token)
	if err != nil {
		config.LogError(logger, moduleName, "routeInteractive", "drop malformed action token",
			map[string]any{"token": token, "from": msg.From}, err)
		return nil
	}

	// Row ids round-trip through the provider, so the target id cannot be
	// trusted. The pet must belong to the sender's account.
	account, err := r.directory.GetAccountByPhone(ctx, msg.From)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return r.gateway.SendText(ctx, msg.From, linkingPrompt)
		}
		return fmt.Errorf("account lookup for action token: %w", err)
	}
	owns, err := r.directory.OwnsPet(ctx, account.ID, target)
	if err != nil {
		return fmt.Errorf("ownership check for pet %s: %w", target, err)
	}
	if !owns {
		logger.WithFields(logrus.Fields{
			"module": moduleName,
			"token":  token,
			"from":   msg.From,
		}).Warn("dropping action token for a pet the account does not own")
		return nil
	}

	switch verb {
	case ActionReport:
		return r.sendReport(ctx, msg.From, target)
	case ActionQr:
		link := fmt.Sprintf("%s/pet/qr_code/%s", config.PublicBaseURL(), target)
		return r.gateway.SendText(ctx, msg.From, "Aquí está el código QR de tu mascota: "+link)
	case ActionCard:
		link := fmt.Sprintf("%s/info/%s", config.PublicBaseURL(), target)
		return r.gateway.SendText(ctx, msg.From, "Aquí está la tarjeta pública de tu mascota: "+link)
	}
	return nil
}

func (r *Router) sendReport(ctx context.Context, to string, petExternalID uuid.UUID) error {
	fileBytes, mimeType, filename, err := r.reports.GeneratePetReport(ctx, petExternalID)
	if err != nil {
		return fmt.Errorf("generate report for pet %s: %w", petExternalID, err)
	}

	mediaID, err := r.gateway.UploadMedia(ctx, fileBytes, mimeType, filename)
	if err != nil {
		return fmt.Errorf("upload report for pet %s: %w", petExternalID, err)
	}

	return r.gateway.SendDocumentByID(ctx, to, mediaID, filename)
}

// ParseActionToken splits a "verb:target_id" row id. The verb must be one of
// the known actions and the target must be a valid uuid; anything else is an
// error the caller drops without failing the batch.
func ParseActionToken(token string) (string, uuid.UUID, error) {
	verb, rawTarget, found := strings.Cut(token, ":")
	if !found || verb == "" || rawTarget == "" {
		return "", uuid.Nil, fmt.Errorf("action token %q is not verb:target_id", token)
	}

	switch verb {
	case ActionReport, ActionQr, ActionCard:
	default:
		return "", uuid.Nil, fmt.Errorf("unknown action verb %q", verb)
	}

	target, err := uuid.Parse(rawTarget)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("action target %q is not a valid id: %w", rawTarget, err)
	}

	return verb, target, nil
}

// gormDirectory adapts the models package to the AccountDirectory interface.
type gormDirectory struct{}

func NewGormDirectory() AccountDirectory {
	return gormDirectory{}
}

func (gormDirectory) GetAccountByPhone(ctx context.Context, phone string) (*models.UserApp, error) {
	return models.GetUserAppByPhone(ctx, phone)
}

func (gormDirectory) GetOwnerPets(ctx context.Context, ownerID int64) ([]models.Pet, error) {
	return models.GetUserPets(ctx, ownerID)
}

func (gormDirectory) OwnsPet(ctx context.Context, ownerID int64, petExternalID uuid.UUID) (bool, error) {
	return models.PetExists(ctx, petExternalID, ownerID)
}
