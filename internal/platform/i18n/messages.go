package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Catalog keys.
const (
	MsgPoliceReportCreated  = "police_report.created"
	MsgAnonymousTipCreated  = "anonymous_tip.created"
	MsgPatrolRequestCreated = "patrol_request.created"
	MsgCameraRequestCreated = "camera_request.created"
	MsgSignageCreated       = "signage_request.created"
	MsgCustomRecordCreated  = "custom_record.created"
	MsgProtocolSubmitted    = "protocol.submitted"
	MsgDocumentsPending     = "protocol.documents_pending"
	MsgNumberUnavailable    = "sequence.unavailable"
)

func init() {
	pt := language.MustParse("pt-BR")
	message.SetString(pt, MsgPoliceReportCreated, "Boletim de ocorrência %s registrado com sucesso.")
	message.SetString(pt, MsgAnonymousTipCreated, "Denúncia %s recebida. Guarde o código %s para acompanhar o andamento.")
	message.SetString(pt, MsgPatrolRequestCreated, "Solicitação de ronda %s registrada.")
	message.SetString(pt, MsgCameraRequestCreated, "Solicitação de câmera %s registrada.")
	message.SetString(pt, MsgSignageCreated, "Solicitação de sinalização %s registrada.")
	message.SetString(pt, MsgCustomRecordCreated, "Registro %s criado.")
	message.SetString(pt, MsgProtocolSubmitted, "Protocolo %s aberto com sucesso.")
	message.SetString(pt, MsgDocumentsPending, "Existem %d documento(s) obrigatório(s) pendente(s) de aprovação.")
	message.SetString(pt, MsgNumberUnavailable, "Não foi possível gerar o número do protocolo. Tente novamente.")

	en := language.English
	message.SetString(en, MsgPoliceReportCreated, "Police report %s registered successfully.")
	message.SetString(en, MsgAnonymousTipCreated, "Tip %s received. Keep code %s to follow its progress.")
	message.SetString(en, MsgPatrolRequestCreated, "Patrol request %s registered.")
	message.SetString(en, MsgCameraRequestCreated, "Camera request %s registered.")
	message.SetString(en, MsgSignageCreated, "Signage request %s registered.")
	message.SetString(en, MsgCustomRecordCreated, "Record %s created.")
	message.SetString(en, MsgProtocolSubmitted, "Protocol %s opened successfully.")
	message.SetString(en, MsgDocumentsPending, "%d required document(s) still awaiting approval.")
	message.SetString(en, MsgNumberUnavailable, "Could not allocate a tracking number. Please try again.")
}
