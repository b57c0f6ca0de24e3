package router

import (
	"net/http"

	"secom/config"
	"secom/controllers"
	"secom/metrics"
	"secom/middleware"
	"secom/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Initialize registra middlewares e rotas.
// Rotas públicas, autenticadas (token) e "validadas" (token + usuário ativo), com grupos por papel.
func Initialize(r *gin.Engine, cfg config.Configuration) {
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.Security.AllowedWSOrigins))
	r.Use(metrics.Middleware())
	r.Use(Logger())

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")

	// Public (no auth)
	api.POST("/login", controllers.Login)
	api.POST("/refresh", controllers.Refresh)
	api.POST("/convites/:code/aceitar", controllers.AcceptInvite)
	api.POST("/senha/esqueci", controllers.ForgotPassword)
	api.POST("/senha/verificar", controllers.CheckResetToken)
	api.POST("/senha/redefinir", controllers.ResetPassword)

	// Websocket: o token vem na query string
	api.GET("/realtime", controllers.Realtime)

	// Authenticated routes (token required)
	auth := api.Group("")
	auth.Use(controllers.AuthRequired())
	auth.POST("/logout", controllers.Logout)

	// Validated routes (token + active user)
	validated := auth.Group("")
	validated.Use(Authorizer())

	validated.GET("/me", controllers.Me)
	validated.PUT("/me", controllers.UpdateMe)

	validated.GET("/areas", controllers.GetAreas)
	validated.GET("/areas/:id", controllers.GetAreaByID)

	// Demandas
	validated.GET("/demandas", controllers.GetDemandas)
	validated.GET("/demandas/:id", controllers.GetDemandaByID)
	validated.POST("/demandas", controllers.CreateDemanda)
	validated.PUT("/demandas/:id", controllers.UpdateDemanda)
	validated.POST("/demandas/:id/status", controllers.UpdateDemandaStatus)
	validated.POST("/demandas/:id/atribuir", controllers.AtribuirDemanda)
	validated.POST("/demandas/:id/sugestao-nota", controllers.SugerirNota)

	// Notas oficiais
	validated.GET("/notas", controllers.GetNotas)
	validated.GET("/notas/:id", controllers.GetNotaByID)
	validated.POST("/notas", controllers.CreateNota)
	validated.PUT("/notas/:id", controllers.UpdateNota)
	validated.DELETE("/notas/:id", controllers.DeleteNota)
	validated.POST("/notas/:id/enviar-revisao", controllers.EnviarNotaRevisao)
	validated.POST("/notas/:id/revisao-ia", controllers.RevisarNotaIA)

	// e-SIC
	validated.GET("/esic", controllers.GetEsicProcessos)
	validated.GET("/esic/:id", controllers.GetEsicByID)
	validated.POST("/esic", controllers.CreateEsic)
	validated.PUT("/esic/:id", controllers.UpdateEsic)
	validated.POST("/esic/:id/status", controllers.UpdateEsicStatus)
	validated.POST("/esic/:id/prorrogar", controllers.ProrrogarEsic)
	validated.POST("/esic/:id/justificativas", controllers.AddEsicJustificativa)
	validated.GET("/esic/:id/prazo", controllers.GetEsicPrazo)
	validated.POST("/esic/:id/sugestao-resposta", controllers.SugerirRespostaEsic)

	// Comunicados (leitura para todos; gestão checada no controller)
	validated.GET("/comunicados", controllers.GetComunicados)
	validated.GET("/comunicados/:id", controllers.GetComunicadoByID)
	validated.PUT("/comunicados/:id", controllers.UpdateComunicado)
	validated.DELETE("/comunicados/:id", controllers.DeleteComunicado)
	validated.POST("/comunicados/:id/lido", controllers.MarcarComunicadoLido)
	validated.GET("/comunicados/:id/leituras", controllers.GetComunicadoLeituras)

	// Notificações
	validated.GET("/notificacoes", controllers.GetNotificacoes)
	validated.POST("/notificacoes/lidas", controllers.MarcarTodasNotificacoesLidas)
	validated.POST("/notificacoes/:id/lida", controllers.MarcarNotificacaoLida)

	// Dashboard
	validated.GET("/dashboard/resumo", controllers.GetDashboardResumo)
	validated.GET("/dashboard/demandas-por-dia", controllers.GetDemandasPorDia)
	validated.GET("/dashboard/demandas-por-mes", controllers.GetDemandasPorMes)
	validated.GET("/dashboard/ranking-areas", controllers.GetRankingAreas)
	validated.GET("/dashboard/ranking-responsaveis", controllers.GetRankingResponsaveis)
	validated.GET("/dashboard/layouts", controllers.GetDashboardLayouts)
	validated.GET("/dashboard/layouts/:nome", controllers.GetDashboardLayout)
	validated.PUT("/dashboard/layouts/:nome", controllers.SaveDashboardLayout)
	validated.GET("/relatorios/demandas.csv", controllers.GetRelatorioDemandasCSV)

	// Coordenação (coordenador + admin)
	coord := validated.Group("")
	coord.Use(RequireRoles(models.USER_ROLE_COORDENADOR))
	coord.POST("/notas/:id/aprovar", controllers.AprovarNota)
	coord.POST("/notas/:id/rejeitar", controllers.RejeitarNota)
	coord.POST("/notas/:id/publicar", controllers.PublicarNota)
	coord.POST("/comunicados", controllers.CreateComunicado)
	coord.POST("/comunicados/:id/enviar", controllers.EnviarComunicado)

	// Admin routes
	admin := validated.Group("")
	admin.Use(Adminizer())

	admin.GET("/usuarios", controllers.GetUsers)
	admin.GET("/usuarios/:id", controllers.GetUserByID)
	admin.POST("/usuarios", controllers.CreateUser)
	admin.PUT("/usuarios/:id", controllers.UpdateUser)
	admin.POST("/usuarios/:id/bloquear", controllers.BlockUser)
	admin.POST("/usuarios/:id/desbloquear", controllers.UnblockUser)
	admin.POST("/usuarios/:id/convite", controllers.ResendInvite)

	admin.POST("/areas", controllers.CreateArea)
	admin.PUT("/areas/:id", controllers.UpdateArea)
	admin.DELETE("/areas/:id", controllers.DeleteArea)

	admin.DELETE("/demandas/:id", controllers.DeleteDemanda)

	logrus.Info("Routes initialized")
}
