package webhook

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/gmLucario/pet-info-sub000/models"
	"github.com/google/uuid"
)

var petReportTemplate = template.Must(template.New("petReport").Parse(`<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"><title>Reporte de {{.PetName}}</title></head>
<body>
<h1>{{.PetName}}</h1>
<p><strong>Raza:</strong> {{.Breed}}</p>
<p><strong>Sexo:</strong> {{if .IsFemale}}Hembra{{else}}Macho{{end}}</p>
{{if .IsLost}}<p><strong>Estado:</strong> Reportada como perdida</p>{{end}}
{{if .About}}<p>{{.About}}</p>{{end}}
<footer><small>Generado el {{.GeneratedAt}}</small></footer>
</body>
</html>
`))

type petReportData struct {
	PetName     string
	Breed       string
	About       string
	IsFemale    bool
	IsLost      bool
	GeneratedAt string
}

// htmlReportGenerator renders the pet report as a standalone HTML document.
type htmlReportGenerator struct{}

func NewReportGenerator() ReportGenerator {
	return htmlReportGenerator{}
}

func (htmlReportGenerator) GeneratePetReport(ctx context.Context, petExternalID uuid.UUID) ([]byte, string, string, error) {
	pet, err := models.GetPetByExternalID(ctx, petExternalID)
	if err != nil {
		return nil, "", "", fmt.Errorf("load pet %s: %w", petExternalID, err)
	}

	data := petReportData{
		PetName:     pet.PetName,
		Breed:       pet.Breed,
		About:       pet.About,
		GeneratedAt: time.Now().UTC().Format("2006-01-02"),
	}
	if pet.IsFemale != nil {
		data.IsFemale = *pet.IsFemale
	}
	if pet.IsLost != nil {
		data.IsLost = *pet.IsLost
	}

	var buf bytes.Buffer
	if err := petReportTemplate.Execute(&buf, data); err != nil {
		return nil, "", "", fmt.Errorf("render report for pet %s: %w", petExternalID, err)
	}

	filename := fmt.Sprintf("reporte_%s.html", petExternalID)
	return buf.Bytes(), "text/html", filename, nil
}
