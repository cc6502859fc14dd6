package compose

import (
	"encoding/json"
	"strings"

	"github.com/dgallion1/labgest/internal/classify"
)

const doctorNoteInstruction = "Please convert the following doctor note into concise clinical bullet points:\n"

const tipsInstruction = `Based on the following blood/lab report, generate 5-8 helpful, SAFE, Hinglish health tips.
Do not diagnose and do not suggest medication doses.
Format MUST be a bullet list with every tip on its own line starting with "-".`

func doctorNotePrompt(note string) string {
	return doctorNoteInstruction + note
}

// tipsPrompt embeds the lab data and summary as JSON so values reach the model
// unchanged.
func tipsPrompt(r classify.Report, s Summary) string {
	var sb strings.Builder
	sb.WriteString(tipsInstruction)
	sb.WriteString("\n\nLAB DATA: ")
	sb.Write(mustJSON(r))
	sb.WriteString("\nSUMMARY: ")
	sb.Write(mustJSON(map[string]string{
		"english":     s.English,
		"doctor_note": s.DoctorNote,
	}))
	sb.WriteString("\n")
	return sb.String()
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}
