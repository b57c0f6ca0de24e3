package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const DASHBOARD_MAX_WIDGETS = 50

// DashboardLayout guarda o layout do painel de cada usuário (autosave do front).
type DashboardLayout struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID    int64      `gorm:"not null;unique_index:ux_dashboard_layout" json:"user_id"`
	Nome      string     `gorm:"not null;unique_index:ux_dashboard_layout" json:"nome"`
	Layout    string     `gorm:"type:text" json:"layout"`
	Versao    int        `json:"versao"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func (DashboardLayout) TableName() string { return "dashboard_layouts" }

// ValidateLayout exige um objeto JSON com "widgets" (array, até DASHBOARD_MAX_WIDGETS itens),
// cada widget com "id" e "tipo".
func ValidateLayout(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" || !gjson.Valid(raw) {
		return fmt.Errorf("%w: json inválido", ErrLayoutInvalido)
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return fmt.Errorf("%w: esperado objeto", ErrLayoutInvalido)
	}
	widgets := doc.Get("widgets")
	if !widgets.IsArray() {
		return fmt.Errorf("%w: widgets deve ser uma lista", ErrLayoutInvalido)
	}
	items := widgets.Array()
	if len(items) > DASHBOARD_MAX_WIDGETS {
		return fmt.Errorf("%w: máximo de %d widgets", ErrLayoutInvalido, DASHBOARD_MAX_WIDGETS)
	}
	for i, w := range items {
		if w.Get("id").String() == "" || w.Get("tipo").String() == "" {
			return fmt.Errorf("%w: widget %d sem id/tipo", ErrLayoutInvalido, i)
		}
	}
	return nil
}

// Apply grava o novo layout se a versão do cliente bater com a armazenada.
// Retorna false quando o conteúdo é idêntico (nada a salvar).
func (l *DashboardLayout) Apply(raw string, clientVersao int) (bool, error) {
	if clientVersao != l.Versao {
		return false, ErrVersaoConflitante
	}
	if err := ValidateLayout(raw); err != nil {
		return false, err
	}
	if l.Versao > 0 && strings.TrimSpace(raw) == strings.TrimSpace(l.Layout) {
		return false, nil
	}
	l.Layout = strings.TrimSpace(raw)
	l.Versao++
	return true, nil
}
