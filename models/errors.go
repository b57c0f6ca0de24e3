package models

import "errors"

// Violações de regra de negócio. Os controllers traduzem para status HTTP.
var (
	ErrTransicaoInvalida     = errors.New("transição de status inválida")
	ErrComentarioObrigatorio = errors.New("comentário obrigatório para esta transição")
	ErrRegistroEncerrado     = errors.New("registro encerrado não pode ser alterado")
	ErrNotaNaoEditavel       = errors.New("nota só pode ser editada em rascunho ou rejeitada")
	ErrMotivoObrigatorio     = errors.New("motivo da rejeição é obrigatório")
	ErrRespostaObrigatoria   = errors.New("resposta é obrigatória")
	ErrProrrogacaoDuplicada  = errors.New("processo já foi prorrogado")
	ErrPrazoExpirado         = errors.New("prazo já expirado")
	ErrJustificativaVazia    = errors.New("justificativa é obrigatória")
	ErrComunicadoEnviado     = errors.New("comunicado já enviado")
	ErrVersaoConflitante     = errors.New("versão desatualizada")
	ErrLayoutInvalido        = errors.New("layout inválido")
)
