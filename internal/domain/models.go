// Caminho: internal/domain/models.go
// Resumo: Modelos de domínio do portal (links de convite, visitantes e o snapshot usado pelo cache).

package domain

import "time"

// InvitationLink representa um link de convite emitido por um morador.
type InvitationLink struct {
	ID                 string    `json:"id"`
	ResidentID         string    `json:"residentId"`
	Token              string    `json:"token"`
	VisitorsValidUntil time.Time `json:"visitorsValidUntil"`
	AccessSchedule     string    `json:"accessSchedule"`
	MaxVisitors        int       `json:"maxVisitors"`
	RegisteredVisitors int       `json:"registeredVisitors"`
	ExpiresAt          time.Time `json:"expiresAt"`
	Revoked            bool      `json:"revoked"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Snapshot projeta os campos mutáveis do link para o cache.
func (l InvitationLink) Snapshot() LinkSnapshot {
	return LinkSnapshot{
		ID:                 l.ID,
		ResidentID:         l.ResidentID,
		VisitorsValidUntil: l.VisitorsValidUntil,
		AccessSchedule:     l.AccessSchedule,
		MaxVisitors:        l.MaxVisitors,
		RegisteredVisitors: l.RegisteredVisitors,
		ExpiresAt:          l.ExpiresAt,
		Revoked:            l.Revoked,
	}
}

// LinkSnapshot é a projeção desnormalizada (não autoritativa) de um link.
type LinkSnapshot struct {
	ID                 string    `json:"id"`
	ResidentID         string    `json:"residentId"`
	VisitorsValidUntil time.Time `json:"visitorsValidUntil"`
	AccessSchedule     string    `json:"accessSchedule"`
	MaxVisitors        int       `json:"maxVisitors"`
	RegisteredVisitors int       `json:"registeredVisitors"`
	ExpiresAt          time.Time `json:"expiresAt"`
	Revoked            bool      `json:"revoked"`
}

// Visitor representa um visitante cadastrado através de um link.
type Visitor struct {
	ID                string    `json:"id"`
	ResidentID        string    `json:"residentId"`
	Name              string    `json:"name"`
	Document          string    `json:"document"`
	Phone             string    `json:"phone,omitempty"`
	ValidUntil        time.Time `json:"validUntil"`
	AccessSchedule    string    `json:"accessSchedule"`
	RegisteredViaLink bool      `json:"registeredViaLink"`
	InvitationLinkID  string    `json:"invitationLinkId,omitempty"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"createdAt"`
}

// VisitorRegistered é o evento emitido após um cadastro bem-sucedido.
type VisitorRegistered struct {
	ResidentID       string    `json:"residentId"`
	VisitorID        string    `json:"visitorId"`
	VisitorName      string    `json:"visitorName"`
	VisitorDocument  string    `json:"visitorDocument"`
	InvitationLinkID string    `json:"invitationLinkId"`
	ValidUntil       time.Time `json:"validUntil"`
	AccessSchedule   string    `json:"accessSchedule"`
	RegisteredAt     time.Time `json:"registeredAt"`
}
