// Package services reúne regras compartilhadas entre controllers e jobs:
// notificações, histórico de status e disparo de comunicados.
package services

import (
	"context"
	"fmt"
	"time"

	"secom/metrics"
	"secom/models"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// Publisher entrega eventos em tempo real (implementado por realtime.Hub).
type Publisher interface {
	PublishUser(userID int64, tipo string, payload any)
	Broadcast(tipo string, payload any)
}

// Messenger envia texto para um telefone (implementado por tools.WhatsAppClient).
type Messenger interface {
	SendText(ctx context.Context, to string, text string) error
}

type Notifier struct {
	Publisher Publisher
	Messenger Messenger
	log       *logrus.Entry
}

func NewNotifier(p Publisher, m Messenger) *Notifier {
	return &Notifier{
		Publisher: p,
		Messenger: m,
		log:       logrus.WithField("component", "notifier"),
	}
}

// Notify grava uma notificação por destinatário (ids repetidos ou zero são ignorados),
// publica no realtime e, para notificações urgentes, tenta o WhatsApp.
// Falhas de entrega não desfazem a gravação.
func (n *Notifier) Notify(ctx context.Context, db *gorm.DB, userIDs []int64, base models.Notificacao) ([]models.Notificacao, error) {
	ids := UniqueIDs(userIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	created := make([]models.Notificacao, 0, len(ids))
	for _, uid := range ids {
		item := base
		item.ID = 0
		item.UserID = uid
		item.Lida = false
		item.LidaEm = nil
		if err := db.Create(&item).Error; err != nil {
			return created, fmt.Errorf("criar notificação user=%d: %w", uid, err)
		}
		created = append(created, item)
	}

	for _, item := range created {
		if n.Publisher != nil {
			n.Publisher.PublishUser(item.UserID, "notificacao.nova", item)
		}
		metrics.NotificationSent("app", true)
	}

	if base.Urgente && n.Messenger != nil {
		n.sendWhatsApp(ctx, db, ids, base)
	}
	return created, nil
}

func (n *Notifier) sendWhatsApp(ctx context.Context, db *gorm.DB, ids []int64, base models.Notificacao) {
	var users []models.User
	if err := db.Where("id IN (?) AND notificar_whatsapp = ?", ids, true).Find(&users).Error; err != nil {
		n.log.WithError(err).Warn("whatsapp: falha ao carregar destinatários")
		return
	}

	text := fmt.Sprintf("*%s*\n\n%s", base.Titulo, base.Mensagem)
	for _, u := range users {
		phone, ok := u.WhatsAppPhone()
		if !ok {
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := n.Messenger.SendText(sendCtx, phone, text)
		cancel()
		if err != nil {
			n.log.WithError(err).WithField("user_id", u.ID).Warn("whatsapp: envio falhou")
		}
		metrics.NotificationSent("whatsapp", err == nil)
	}
}

// Broadcast avisa todos os conectados sobre uma mudança (nil-safe).
func (n *Notifier) Broadcast(tipo string, payload any) {
	if n == nil || n.Publisher == nil {
		return
	}
	n.Publisher.Broadcast(tipo, payload)
}

// UniqueIDs remove zeros e duplicados preservando a ordem.
func UniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// PtrID devolve o valor ou 0 para ids opcionais.
func PtrID(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
