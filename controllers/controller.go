package controllers

import (
	"errors"
	"net/http"
	"time"

	"secom/cache"
	"secom/config"
	"secom/models"
	"secom/realtime"
	"secom/services"
	"secom/tools"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// Services agrupa as dependências externas usadas pelos handlers.
type Services struct {
	Notifier  *services.Notifier
	Publisher services.Publisher
	Messenger services.Messenger
	Hub       *realtime.Hub
	Cache     cache.Cache
	AI        tools.AIClient
}

var conf config.Configuration

var (
	notifier  *services.Notifier
	hub       *realtime.Hub
	messenger services.Messenger
	dashCache cache.Cache
	aiClient  tools.AIClient
)

var (
	// clock permite congelar o tempo nos testes.
	clock = time.Now

	errSemPermissao = errors.New("sem permissão")
)

func init() {
	Configure(config.Default(), Services{})
}

// Configure injeta configuração e serviços. Chamado uma vez no boot (e nos testes).
func Configure(c config.Configuration, s Services) {
	conf = c
	if s.Notifier != nil {
		notifier = s.Notifier
	} else {
		notifier = services.NewNotifier(s.Publisher, s.Messenger)
	}
	hub = s.Hub
	messenger = s.Messenger
	if s.Cache != nil {
		dashCache = s.Cache
	} else {
		dashCache = cache.NewMemory()
	}
	aiClient = s.AI
	resetAILimiters()
}

func RespondError(c *gin.Context, msg string, code int) {
	c.JSON(code, gin.H{"error": msg})
}

func RespondSuccess(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// RespondDomainError traduz violações de regra para status HTTP.
// Erros de banco viram 404 (registro não encontrado) ou 500, com log.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrComentarioObrigatorio),
		errors.Is(err, models.ErrMotivoObrigatorio),
		errors.Is(err, models.ErrRespostaObrigatoria),
		errors.Is(err, models.ErrJustificativaVazia),
		errors.Is(err, models.ErrLayoutInvalido):
		RespondError(c, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, models.ErrTransicaoInvalida),
		errors.Is(err, models.ErrRegistroEncerrado),
		errors.Is(err, models.ErrNotaNaoEditavel),
		errors.Is(err, models.ErrProrrogacaoDuplicada),
		errors.Is(err, models.ErrPrazoExpirado),
		errors.Is(err, models.ErrComunicadoEnviado),
		errors.Is(err, models.ErrVersaoConflitante):
		RespondError(c, err.Error(), http.StatusConflict)
	default:
		respondDBError(c, err)
	}
}

func respondDBError(c *gin.Context, err error) {
	if gorm.IsRecordNotFoundError(err) {
		RespondError(c, "registro não encontrado", http.StatusNotFound)
		return
	}
	logrus.WithError(err).WithField("path", c.FullPath()).Error("erro ao acessar o banco")
	RespondError(c, "erro interno, tente novamente", http.StatusInternalServerError)
}

// dbOrAbort devolve a conexão do contexto ou responde 500.
func dbOrAbort(c *gin.Context) (*gorm.DB, bool) {
	db := dbInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return nil, false
	}
	return db, true
}
