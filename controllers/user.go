package controllers

import (
	"net/http"
	"strings"

	"secom/metrics"
	"secom/models"
	"secom/tools"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type UserRequest struct {
	Nome              string `json:"nome" form:"nome"`
	Email             string `json:"email" form:"email"`
	Telefone          string `json:"telefone" form:"telefone"`
	Cargo             string `json:"cargo" form:"cargo"`
	Role              string `json:"role" form:"role"`
	AreaID            *int64 `json:"area_id" form:"area_id"`
	NotificarWhatsApp *bool  `json:"notificar_whatsapp" form:"notificar_whatsapp"`
}

func CheckUserExists(db *gorm.DB, email string, exceptID int64) (bool, error) {
	var count int
	err := db.Model(&models.User{}).
		Where("email = ? AND id <> ?", strings.ToLower(email), exceptID).
		Count(&count).Error
	return count > 0, err
}

func checkArea(db *gorm.DB, areaID *int64) bool {
	if areaID == nil {
		return true
	}
	var count int
	db.Model(&models.Area{}).Where("id = ?", *areaID).Count(&count)
	return count > 0
}

// GET /api/usuarios?role=&area_id=&status=&q=
func GetUsers(c *gin.Context) {
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	query := db.Model(&models.User{})
	if role := strings.TrimSpace(c.Query("role")); role != "" {
		query = query.Where("role = ?", role)
	}
	if areaID := queryID(c, "area_id"); areaID > 0 {
		query = query.Where("area_id = ?", areaID)
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = query.Where("status = ?", queryInt(c, "status", 0))
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := likePattern(q)
		query = query.Where("nome LIKE ? OR email LIKE ?", like, like)
	}

	var users []models.User
	if err := query.Order("nome asc").Find(&users).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"usuarios": users})
}

func GetUserByID(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"usuario": user})
}

// CreateUser (admin) cadastra um usuário pendente e devolve o convite de ativação.
func CreateUser(c *gin.Context) {
	admin, _ := GetUserLogged(c)
	var req UserRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	user := models.User{
		Nome:     strings.TrimSpace(req.Nome),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Telefone: strings.TrimSpace(req.Telefone),
		Cargo:    strings.TrimSpace(req.Cargo),
		Role:     strings.TrimSpace(req.Role),
		AreaID:   req.AreaID,
		Status:   models.USER_STATUS_PENDING,
	}
	if req.NotificarWhatsApp != nil {
		user.NotificarWhatsApp = *req.NotificarWhatsApp
	}
	if user.Role == "" {
		user.Role = models.USER_ROLE_COLABORADOR
	}

	if missing := user.MissingFields(); missing != "" {
		RespondError(c, "Faltando campo "+missing, http.StatusBadRequest)
		return
	}
	if !tools.ValidateEmail(user.Email) {
		RespondError(c, "E-mail inválido!", http.StatusBadRequest)
		return
	}
	if !models.IsValidRole(user.Role) {
		RespondError(c, "role inválido", http.StatusBadRequest)
		return
	}

	db, ok := dbOrAbort(c)
	if !ok {
		return
	}
	if !checkArea(db, user.AreaID) {
		RespondError(c, "área não encontrada", http.StatusBadRequest)
		return
	}
	exists, err := CheckUserExists(db, user.Email, 0)
	if err != nil {
		respondDBError(c, err)
		return
	} else if exists {
		RespondError(c, "Usuário já existe", http.StatusConflict)
		return
	}

	var invite *models.Invite
	err = transaction(db, func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		var err error
		invite, err = createInvite(tx, admin.ID, user.ID, clock())
		return err
	})
	if err != nil {
		respondDBError(c, err)
		return
	}

	metrics.RecordCreated("usuario")
	sendInviteWhatsApp(c, user, invite.Code)
	RespondCreated(c, gin.H{"usuario": user, "convite": invite})
}

// UpdateUser (admin) altera dados cadastrais, papel e área. Status tem rotas próprias.
func UpdateUser(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req UserRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		respondDBError(c, err)
		return
	}

	updates := map[string]interface{}{}
	if v := strings.TrimSpace(req.Nome); v != "" {
		updates["nome"] = v
	}
	if v := strings.ToLower(strings.TrimSpace(req.Email)); v != "" && v != user.Email {
		if !tools.ValidateEmail(v) {
			RespondError(c, "E-mail inválido!", http.StatusBadRequest)
			return
		}
		exists, err := CheckUserExists(db, v, user.ID)
		if err != nil {
			respondDBError(c, err)
			return
		} else if exists {
			RespondError(c, "Usuário já existe", http.StatusConflict)
			return
		}
		updates["email"] = v
	}
	if v := strings.TrimSpace(req.Role); v != "" {
		if !models.IsValidRole(v) {
			RespondError(c, "role inválido", http.StatusBadRequest)
			return
		}
		updates["role"] = v
	}
	if req.AreaID != nil {
		if *req.AreaID <= 0 {
			updates["area_id"] = nil
		} else if !checkArea(db, req.AreaID) {
			RespondError(c, "área não encontrada", http.StatusBadRequest)
			return
		} else {
			updates["area_id"] = *req.AreaID
		}
	}
	if req.Telefone != "" {
		updates["telefone"] = strings.TrimSpace(req.Telefone)
	}
	if req.Cargo != "" {
		updates["cargo"] = strings.TrimSpace(req.Cargo)
	}
	if req.NotificarWhatsApp != nil {
		updates["notificar_whatsapp"] = *req.NotificarWhatsApp
	}

	if len(updates) > 0 {
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			respondDBError(c, err)
			return
		}
	}
	if err := db.First(&user, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"usuario": user})
}

// POST /api/usuarios/:id/bloquear: também derruba as sessões.
func BlockUser(c *gin.Context) {
	setUserStatus(c, models.USER_STATUS_BLOCKED)
}

// POST /api/usuarios/:id/desbloquear
func UnblockUser(c *gin.Context) {
	setUserStatus(c, models.USER_STATUS_AVAILABLE)
}

func setUserStatus(c *gin.Context, status int) {
	admin, _ := GetUserLogged(c)
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	if id == admin.ID && status == models.USER_STATUS_BLOCKED {
		RespondError(c, "não é possível bloquear a si mesmo", http.StatusConflict)
		return
	}
	db, ok := dbOrAbort(c)
	if !ok {
		return
	}

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		respondDBError(c, err)
		return
	}
	if status == models.USER_STATUS_AVAILABLE && user.Status == models.USER_STATUS_PENDING {
		RespondError(c, "usuário ainda não ativou o convite", http.StatusConflict)
		return
	}

	err := transaction(db, func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("status", status).Error; err != nil {
			return err
		}
		if status == models.USER_STATUS_BLOCKED {
			return revokeAllUserRefreshTokens(tx, user.ID, clock())
		}
		return nil
	})
	if err != nil {
		respondDBError(c, err)
		return
	}
	user.Status = status
	RespondSuccess(c, gin.H{"usuario": user})
}
