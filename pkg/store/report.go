package store

import (
	"fmt"
	"strings"
	"time"
)

const notInformed = "Não informado"

type ComplaintSection struct {
	Description     string   `json:"descricao"`
	AllComplaints   []string `json:"todas_queixas"`
	Location        string   `json:"localizacao"`
	Onset           string   `json:"tempo_evolucao"`
	Characteristics string   `json:"caracteristicas"`
}

type SymptomSection struct {
	Associated string `json:"associados"`
	Relievers  string `json:"fatores_melhora"`
	Worseners  string `json:"fatores_piora"`
}

type HistorySection struct {
	Medical           []string `json:"medico"`
	MotherSide        []string `json:"familiar_materno"`
	FatherSide        []string `json:"familiar_paterno"`
	Habits            []string `json:"habitos"`
	Allergies         string   `json:"alergias"`
	RegularMedication string   `json:"medicacao_regular"`
	OccasionalMeds    string   `json:"medicacao_esporadica"`
}

// AssessmentReport summarizes one interview.
type AssessmentReport struct {
	SessionID       string           `json:"session_id"`
	UserID          string           `json:"user_id"`
	StartedAt       time.Time        `json:"data_avaliacao"`
	DurationMinutes int              `json:"duracao_minutos"`
	PatientName     string           `json:"nome_paciente"`
	Complaint       ComplaintSection `json:"queixa_principal"`
	Symptoms        SymptomSection   `json:"sintomas"`
	History         HistorySection   `json:"historico"`
	Answered        int              `json:"perguntas_respondidas"`
	Total           int              `json:"total_perguntas"`
	Completeness    int              `json:"completude"`
	Completed       bool             `json:"concluida"`
	GeneratedAt     time.Time        `json:"gerado_em"`
}

// Narrative renders the report as the plain-text summary handed to the doctor.
func (r AssessmentReport) Narrative() string {
	var b strings.Builder
	b.WriteString("RELATÓRIO DE AVALIAÇÃO CLÍNICA INICIAL\n")
	b.WriteString("Método IMRE - Dr. Ricardo Valença\n")
	fmt.Fprintf(&b, "Data: %s\n", r.StartedAt.Format("02/01/2006"))
	fmt.Fprintf(&b, "Paciente: %s\n\n", orDefault(r.PatientName, notInformed))

	fmt.Fprintf(&b, "QUEIXAS: %s\n", joinOrDefault(r.Complaint.AllComplaints, notInformed))
	fmt.Fprintf(&b, "QUEIXA PRINCIPAL: %s\n\n", orDefault(r.Complaint.Description, "Não especificada"))

	b.WriteString("DESENVOLVIMENTO INDICIÁRIO:\n")
	fmt.Fprintf(&b, "- Localização: %s\n", orDefault(r.Complaint.Location, notInformed))
	fmt.Fprintf(&b, "- Início: %s\n", orDefault(r.Complaint.Onset, notInformed))
	fmt.Fprintf(&b, "- Qualidade: %s\n", orDefault(r.Complaint.Characteristics, notInformed))
	fmt.Fprintf(&b, "- Sintomas associados: %s\n", orDefault(r.Symptoms.Associated, notInformed))
	fmt.Fprintf(&b, "- Fatores de melhora: %s\n", orDefault(r.Symptoms.Relievers, notInformed))
	fmt.Fprintf(&b, "- Fatores de piora: %s\n\n", orDefault(r.Symptoms.Worseners, notInformed))

	fmt.Fprintf(&b, "HISTÓRIA PATOLÓGICA: %s\n\n", joinOrDefault(r.History.Medical, "Nenhuma"))
	b.WriteString("HISTÓRIA FAMILIAR:\n")
	fmt.Fprintf(&b, "- Mãe: %s\n", joinOrDefault(r.History.MotherSide, "Nenhuma"))
	fmt.Fprintf(&b, "- Pai: %s\n\n", joinOrDefault(r.History.FatherSide, "Nenhuma"))
	fmt.Fprintf(&b, "HÁBITOS DE VIDA: %s\n\n", joinOrDefault(r.History.Habits, notInformed))
	fmt.Fprintf(&b, "ALERGIAS: %s\n\n", orDefault(r.History.Allergies, "Nenhuma"))
	b.WriteString("MEDICAÇÕES:\n")
	fmt.Fprintf(&b, "- Contínuas: %s\n", orDefault(r.History.RegularMedication, "Nenhuma"))
	fmt.Fprintf(&b, "- Eventuais: %s\n\n", orDefault(r.History.OccasionalMeds, "Nenhuma"))

	fmt.Fprintf(&b, "Completude: %d%% (%d de %d etapas)", r.Completeness, r.Answered, r.Total)
	return b.String()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func joinOrDefault(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return strings.Join(items, ", ")
}
