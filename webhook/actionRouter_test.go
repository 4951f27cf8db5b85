package webhook

import (
	"context"
	"strings"
	"testing"

	"github.com/gmLucario/pet-info-sub000/models"
	"github.com/gmLucario/pet-info-sub000/utils"
	"github.com/google/uuid"
)

type fakeDirectory struct {
	account *models.UserApp
	pets    []models.Pet
}

func (f *fakeDirectory) GetAccountByPhone(ctx context.Context, phone string) (*models.UserApp, error) {
	if f.account == nil {
		return nil, utils.ErrorRecordNotFound
	}
	return f.account, nil
}

func (f *fakeDirectory) GetOwnerPets(ctx context.Context, ownerID int64) ([]models.Pet, error) {
	return f.pets, nil
}

func (f *fakeDirectory) OwnsPet(ctx context.Context, ownerID int64, petExternalID uuid.UUID) (bool, error) {
	for _, pet := range f.pets {
		if pet.ExternalID == petExternalID && pet.UserAppId == ownerID {
			return true, nil
		}
	}
	return false, nil
}

type sentList struct {
	to     string
	header string
	rows   []ListRow
}

type fakeGateway struct {
	texts     []string
	textTo    []string
	lists     []sentList
	documents []string
	uploads   int
	mediaID   string
}

func (f *fakeGateway) SendText(ctx context.Context, to string, body string) error {
	f.textTo = append(f.textTo, to)
	f.texts = append(f.texts, body)
	return nil
}

func (f *fakeGateway) SendInteractiveList(ctx context.Context, to string, header string, body string, button string, rows []ListRow) error {
	f.lists = append(f.lists, sentList{to: to, header: header, rows: rows})
	return nil
}

func (f *fakeGateway) SendDocumentByID(ctx context.Context, to string, mediaID string, filename string) error {
	f.documents = append(f.documents, mediaID)
	return nil
}

func (f *fakeGateway) SendDocumentByLink(ctx context.Context, to string, link string, filename string) error {
	f.documents = append(f.documents, link)
	return nil
}

func (f *fakeGateway) SendTemplate(ctx context.Context, to string, templateName string, bodyParams []string) error {
	return nil
}

func (f *fakeGateway) UploadMedia(ctx context.Context, fileBytes []byte, mimeType string, filename string) (string, error) {
	f.uploads++
	return f.mediaID, nil
}

type fakeReports struct {
	generated []uuid.UUID
}

func (f *fakeReports) GeneratePetReport(ctx context.Context, petExternalID uuid.UUID) ([]byte, string, string, error) {
	f.generated = append(f.generated, petExternalID)
	return []byte("<html></html>"), "text/html", "reporte.html", nil
}

func textMessage(from string, body string) *Message {
	return &Message{
		From: from,
		ID:   "wamid.test",
		Type: MessageTypeText,
		Text: &TextBody{Body: body},
	}
}

func interactiveMessage(from string, replyID string) *Message {
	return &Message{
		From: from,
		ID:   "wamid.test",
		Type: MessageTypeInteractive,
		Interactive: &InteractiveBody{
			Type:      "list_reply",
			ListReply: &InteractiveReply{ID: replyID, Title: "Firulais"},
		},
	}
}

func TestRouteTextUnknownPhoneSendsLinkingPrompt(t *testing.T) {
	gateway := &fakeGateway{}
	router := NewRouter(&fakeDirectory{}, gateway, &fakeReports{})

	if err := router.Route(context.Background(), textMessage("5215500000001", "hola")); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(gateway.texts) != 1 || !strings.Contains(gateway.texts[0], "vinculado") {
		t.Fatalf("expected linking prompt, got %v", gateway.texts)
	}
	if len(gateway.lists) != 0 {
		t.Fatalf("unexpected interactive list for unknown phone")
	}
}

func TestRouteTextKnownPhoneSendsPetList(t *testing.T) {
	petID := uuid.New()
	directory := &fakeDirectory{
		account: &models.UserApp{ID: 7},
		pets:    []models.Pet{{ID: 1, ExternalID: petID, UserAppId: 7, PetName: "Firulais"}},
	}
	gateway := &fakeGateway{}
	router := NewRouter(directory, gateway, &fakeReports{})

	if err := router.Route(context.Background(), textMessage("5215512345678", "hola")); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(gateway.lists) != 1 {
		t.Fatalf("expected one interactive list, got %d", len(gateway.lists))
	}

	rows := gateway.lists[0].rows
	if len(rows) != 3 {
		t.Fatalf("expected report/qr/card rows for one pet, got %d", len(rows))
	}
	wantIDs := map[string]bool{
		"report:" + petID.String(): false,
		"qr:" + petID.String():     false,
		"card:" + petID.String():   false,
	}
	for _, row := range rows {
		if _, ok := wantIDs[row.ID]; !ok {
			t.Fatalf("unexpected row id %q", row.ID)
		}
		wantIDs[row.ID] = true
	}
	for id, seen := range wantIDs {
		if !seen {
			t.Fatalf("missing row id %q", id)
		}
	}
}

func TestRouteInteractiveQrSendsLink(t *testing.T) {
	target := "3fa85f64-5717-4562-b3fc-2c963f66afa6"
	directory := &fakeDirectory{
		account: &models.UserApp{ID: 7},
		pets:    []models.Pet{{ID: 1, ExternalID: uuid.MustParse(target), UserAppId: 7, PetName: "Firulais"}},
	}
	gateway := &fakeGateway{}
	router := NewRouter(directory, gateway, &fakeReports{})

	if err := router.Route(context.Background(), interactiveMessage("5215512345678", "qr:"+target)); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(gateway.texts) != 1 || !strings.Contains(gateway.texts[0], target) {
		t.Fatalf("expected qr link carrying %s, got %v", target, gateway.texts)
	}
	if gateway.uploads != 0 {
		t.Fatalf("qr action must not upload media")
	}
}

func TestRouteInteractiveReportUploadsAndSendsDocument(t *testing.T) {
	reports := &fakeReports{}
	gateway := &fakeGateway{mediaID: "media-001"}
	target := uuid.New()
	directory := &fakeDirectory{
		account: &models.UserApp{ID: 7},
		pets:    []models.Pet{{ID: 1, ExternalID: target, UserAppId: 7, PetName: "Firulais"}},
	}
	router := NewRouter(directory, gateway, reports)

	if err := router.Route(context.Background(), interactiveMessage("5215512345678", "report:"+target.String())); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(reports.generated) != 1 || reports.generated[0] != target {
		t.Fatalf("report generated for %v, want %s", reports.generated, target)
	}
	if gateway.uploads != 1 {
		t.Fatalf("expected one media upload, got %d", gateway.uploads)
	}
	if len(gateway.documents) != 1 || gateway.documents[0] != "media-001" {
		t.Fatalf("expected document sent by media id, got %v", gateway.documents)
	}
}

func TestRouteInteractiveMalformedTokenDropped(t *testing.T) {
	gateway := &fakeGateway{}
	router := NewRouter(&fakeDirectory{}, gateway, &fakeReports{})

	cases := []string{
		"bogus",
		"qr:",
		":3fa85f64-5717-4562-b3fc-2c963f66afa6",
		"qr:not-a-uuid",
		"steal:3fa85f64-5717-4562-b3fc-2c963f66afa6",
	}
	for _, token := range cases {
		if err := router.Route(context.Background(), interactiveMessage("5215512345678", token)); err != nil {
			t.Fatalf("Route(%q) returned error: %v", token, err)
		}
	}
	if len(gateway.texts) != 0 || len(gateway.documents) != 0 || gateway.uploads != 0 {
		t.Fatalf("malformed tokens triggered gateway traffic")
	}
}

func TestRouteInteractiveForeignPetDropped(t *testing.T) {
	ownPet := uuid.New()
	directory := &fakeDirectory{
		account: &models.UserApp{ID: 7},
		pets:    []models.Pet{{ID: 1, ExternalID: ownPet, UserAppId: 7, PetName: "Firulais"}},
	}
	reports := &fakeReports{}
	gateway := &fakeGateway{mediaID: "media-001"}
	router := NewRouter(directory, gateway, reports)

	// A crafted row id naming another owner's pet must not leak anything.
	foreignPet := uuid.New()
	if err := router.Route(context.Background(), interactiveMessage("5215512345678", "report:"+foreignPet.String())); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(reports.generated) != 0 || gateway.uploads != 0 || len(gateway.documents) != 0 || len(gateway.texts) != 0 {
		t.Fatalf("foreign pet token triggered gateway traffic")
	}
}

func TestRouteInteractiveUnknownPhoneSendsLinkingPrompt(t *testing.T) {
	gateway := &fakeGateway{}
	router := NewRouter(&fakeDirectory{}, gateway, &fakeReports{})

	token := "qr:3fa85f64-5717-4562-b3fc-2c963f66afa6"
	if err := router.Route(context.Background(), interactiveMessage("5215500000001", token)); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(gateway.texts) != 1 || !strings.Contains(gateway.texts[0], "vinculado") {
		t.Fatalf("expected linking prompt, got %v", gateway.texts)
	}
	if gateway.uploads != 0 || len(gateway.documents) != 0 {
		t.Fatalf("unknown phone must not reach media actions")
	}
}

func TestParseActionToken(t *testing.T) {
	verb, target, err := ParseActionToken("qr:3fa85f64-5717-4562-b3fc-2c963f66afa6")
	if err != nil {
		t.Fatalf("ParseActionToken: %v", err)
	}
	if verb != ActionQr {
		t.Fatalf("verb %q", verb)
	}
	if target.String() != "3fa85f64-5717-4562-b3fc-2c963f66afa6" {
		t.Fatalf("target %s", target)
	}

	if _, _, err := ParseActionToken("report:qr:3fa85f64-5717-4562-b3fc-2c963f66afa6"); err == nil {
		t.Fatalf("double-colon token accepted")
	}
}
