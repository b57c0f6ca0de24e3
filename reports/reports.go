// Package reports agrega demandas, notas e processos e-SIC para os painéis.
// As funções trabalham sobre projeções já carregadas, então independem do dialeto do banco.
package reports

import (
	"math"
	"sort"
	"time"

	"secom/models"
)

const SEM_AREA = "Sem área"
const SEM_RESPONSAVEL = "Sem responsável"

type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

type MonthCount struct {
	Mes         string `json:"mes"`
	Criadas     int64  `json:"criadas"`
	Respondidas int64  `json:"respondidas"`
}

type Ranking struct {
	ID              int64   `json:"id"`
	Nome            string  `json:"nome"`
	Total           int     `json:"total"`
	Respondidas     int     `json:"respondidas"`
	Atrasadas       int     `json:"atrasadas"`
	TaxaResposta    float64 `json:"taxa_resposta"`
	TempoMedioHoras float64 `json:"tempo_medio_horas"`
}

type Resumo struct {
	Demandas          map[string]int `json:"demandas"`
	Notas             map[string]int `json:"notas"`
	Esic              map[string]int `json:"esic"`
	DemandasAtrasadas int            `json:"demandas_atrasadas"`
	EsicVencendo      int            `json:"esic_vencendo"`
	EsicVencidos      int            `json:"esic_vencidos"`
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DailySeries conta demandas criadas por dia entre from e to (inclusive), com zeros.
func DailySeries(rows []models.Demanda, from, to time.Time, loc *time.Location) []DayCount {
	m := map[string]int64{}
	for _, d := range rows {
		if d.CreatedAt == nil {
			continue
		}
		m[d.CreatedAt.In(loc).Format("2006-01-02")]++
	}

	var out []DayCount
	cur := dayStart(from, loc)
	end := dayStart(to, loc)
	for !cur.After(end) {
		key := cur.Format("2006-01-02")
		out = append(out, DayCount{Day: key, Count: m[key]})
		cur = cur.AddDate(0, 0, 1)
	}
	return out
}

// MonthlySeries devolve os 12 meses do ano com criadas e respondidas em cada mês.
func MonthlySeries(rows []models.Demanda, year int, loc *time.Location) []MonthCount {
	out := make([]MonthCount, 12)
	for i := range out {
		out[i].Mes = time.Date(year, time.Month(i+1), 1, 0, 0, 0, 0, loc).Format("2006-01")
	}
	for _, d := range rows {
		if d.CreatedAt != nil {
			if t := d.CreatedAt.In(loc); t.Year() == year {
				out[t.Month()-1].Criadas++
			}
		}
		if d.RespondidaEm != nil {
			if t := d.RespondidaEm.In(loc); t.Year() == year {
				out[t.Month()-1].Respondidas++
			}
		}
	}
	return out
}

type rankAcc struct {
	Ranking
	totalHoras float64
}

func rank(rows []models.Demanda, key func(models.Demanda) *int64, names map[int64]string, semNome string, now time.Time) []Ranking {
	acc := map[int64]*rankAcc{}
	for _, d := range rows {
		var id int64
		if p := key(d); p != nil {
			id = *p
		}
		r, ok := acc[id]
		if !ok {
			nome := names[id]
			if id == 0 || nome == "" {
				nome = semNome
			}
			r = &rankAcc{Ranking: Ranking{ID: id, Nome: nome}}
			acc[id] = r
		}

		r.Total++
		if d.IsAtrasada(now) {
			r.Atrasadas++
		}
		if d.RespondidaEm != nil && d.CreatedAt != nil {
			r.Respondidas++
			r.totalHoras += d.RespondidaEm.Sub(*d.CreatedAt).Hours()
		}
	}

	out := make([]Ranking, 0, len(acc))
	for _, r := range acc {
		if r.Total > 0 {
			r.TaxaResposta = round(float64(r.Respondidas)/float64(r.Total), 2)
		}
		if r.Respondidas > 0 {
			r.TempoMedioHoras = round(r.totalHoras/float64(r.Respondidas), 1)
		}
		out = append(out, r.Ranking)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Nome < out[j].Nome
	})
	return out
}

// RankAreas agrupa por área; demandas sem área caem em SEM_AREA (id 0).
func RankAreas(rows []models.Demanda, areaNames map[int64]string, now time.Time) []Ranking {
	return rank(rows, func(d models.Demanda) *int64 { return d.AreaID }, areaNames, SEM_AREA, now)
}

func RankResponsaveis(rows []models.Demanda, userNames map[int64]string, now time.Time, limit int) []Ranking {
	out := rank(rows, func(d models.Demanda) *int64 { return d.ResponsavelID }, userNames, SEM_RESPONSAVEL, now)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// BuildResumo conta status e prazos. alertaDias define a janela de "vencendo".
func BuildResumo(demandas []models.Demanda, notaStatus []string, processos []models.EsicProcesso, now time.Time, alertaDias int) Resumo {
	r := Resumo{
		Demandas: map[string]int{},
		Notas:    map[string]int{},
		Esic:     map[string]int{},
	}
	for _, d := range demandas {
		r.Demandas[d.Status]++
		if d.IsAtrasada(now) {
			r.DemandasAtrasadas++
		}
	}
	for _, s := range notaStatus {
		r.Notas[s]++
	}
	limite := now.AddDate(0, 0, alertaDias)
	for _, p := range processos {
		r.Esic[p.Status]++
		switch {
		case p.IsVencido(now):
			r.EsicVencidos++
		case IsEsicVencendo(p, now, limite):
			r.EsicVencendo++
		}
	}
	return r
}

// IsEsicVencendo indica processo com prazo ainda correndo e dentro da janela de alerta.
func IsEsicVencendo(p models.EsicProcesso, now, limite time.Time) bool {
	if p.PrazoFinal == nil || p.Status == models.ESIC_STATUS_RESPONDIDO || p.IsClosed() {
		return false
	}
	return !now.After(*p.PrazoFinal) && !p.PrazoFinal.After(limite)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
