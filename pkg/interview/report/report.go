// Package report turns a session's captured variables into the assessment
// report handed to the doctor.
package report

import (
	"math"
	"strings"
	"time"

	"noa-assistant-be/pkg/interview/stage"
	"noa-assistant-be/pkg/interview/variables"
	"noa-assistant-be/pkg/store"
)

// Build never fails: missing answers simply stay empty.
func Build(sess *store.Session, table *stage.Table, now time.Time) store.AssessmentReport {
	vars := sess.Variables
	if vars == nil {
		vars = variables.New()
	}

	started := sess.CreatedAt
	if sess.InterviewStartedAt != nil {
		started = *sess.InterviewStartedAt
	}
	ended := now
	if sess.InterviewFinishedAt != nil {
		ended = *sess.InterviewFinishedAt
	}

	answered, total := progress(vars, table)
	completeness := 0
	if total > 0 {
		completeness = int(math.Round(float64(answered) * 100 / float64(total)))
	}

	relievers := get(vars, "melhora")
	if relievers == "" {
		relievers = get(vars, "fatores_modificadores")
	}

	medical := vars.List("historicoDoenca")
	if h := get(vars, "historia_medica"); h != "" {
		medical = append(medical, h)
	}

	return store.AssessmentReport{
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		StartedAt:       started,
		DurationMinutes: int(math.Max(0, ended.Sub(started).Minutes())),
		PatientName:     get(vars, "nome"),
		Complaint: store.ComplaintSection{
			Description:     get(vars, "queixaPrincipal"),
			AllComplaints:   vars.List("motivos_detalhados"),
			Location:        get(vars, "localizacao"),
			Onset:           get(vars, "tempo_evolucao"),
			Characteristics: get(vars, "caracteristicas"),
		},
		Symptoms: store.SymptomSection{
			Associated: get(vars, "sintomas_associados"),
			Relievers:  relievers,
			Worseners:  get(vars, "piora"),
		},
		History: store.HistorySection{
			Medical:           medical,
			MotherSide:        vars.List("familiaMae"),
			FatherSide:        vars.List("familiaPai"),
			Habits:            vars.List("habitos"),
			Allergies:         get(vars, "alergias"),
			RegularMedication: get(vars, "medicacaoRegular"),
			OccasionalMeds:    get(vars, "medicacaoEsporadica"),
		},
		Answered:     answered,
		Total:        total,
		Completeness: completeness,
		Completed:    sess.Status == store.StatusCompleted,
		GeneratedAt:  now,
	}
}

// progress counts the capturing stages that have an answer.
func progress(vars *variables.Store, table *stage.Table) (int, int) {
	if table == nil {
		return 0, 0
	}
	answered := 0
	for _, st := range table.Stages() {
		if !st.IsNarration() && vars.Has(st.Variable) {
			answered++
		}
	}
	return answered, table.VariableStages()
}

func get(vars *variables.Store, name string) string {
	v, _ := vars.Get(name)
	return strings.TrimSpace(v)
}
