package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Scored é um candidato com sua similaridade em relação à consulta.
type Scored struct {
	ID    int64
	Score float64
}

func EncodeEmbedding(v []float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func ParseEmbedding(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty embedding string")
	}
	var arr []float64
	if err := json.Unmarshal([]byte(s), &arr); err != nil {
		return nil, err
	}
	for _, v := range arr {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid embedding value")
		}
	}
	if len(arr) == 0 {
		return nil, fmt.Errorf("empty embedding array")
	}
	return arr, nil
}

// CosineSimilarity compara até o menor tamanho; vetores nulos não têm similaridade.
func CosineSimilarity(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(b) == 0 {
		return 0, false
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}

// TopSimilar ordena por score desc (empate: menor id) e devolve até k itens com score >= threshold.
func TopSimilar(query []float64, candidates map[int64]string, k int, threshold float64) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for id, raw := range candidates {
		emb, err := ParseEmbedding(raw)
		if err != nil {
			continue
		}
		s, ok := CosineSimilarity(query, emb)
		if !ok || s < threshold {
			continue
		}
		scored = append(scored, Scored{ID: id, Score: s})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
