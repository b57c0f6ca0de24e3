package reports

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"secom/models"
)

var demandasCSVHeader = []string{
	"protocolo", "titulo", "origem", "prioridade", "status", "area", "responsavel",
	"prazo", "criada_em", "respondida_em", "atrasada",
}

// WriteDemandasCSV exporta as demandas com nomes de área/responsável resolvidos.
func WriteDemandasCSV(w io.Writer, rows []models.Demanda, areaNames, userNames map[int64]string, now time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(demandasCSVHeader); err != nil {
		return err
	}
	for _, d := range rows {
		record := []string{
			d.Protocolo,
			d.Titulo,
			d.Origem,
			d.Prioridade,
			d.Status,
			lookup(areaNames, d.AreaID),
			lookup(userNames, d.ResponsavelID),
			formatTime(d.Prazo),
			formatTime(d.CreatedAt),
			formatTime(d.RespondidaEm),
			strconv.FormatBool(d.IsAtrasada(now)),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func lookup(names map[int64]string, id *int64) string {
	if id == nil {
		return ""
	}
	return names[*id]
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
