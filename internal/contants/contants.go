// Caminho: internal/contants/contants.go
// Resumo: Constantes globais do sistema.

package contants

// Assunto do e-mail enviado à portaria quando um visitante se cadastra (o nome é anexado).
const EmailSubjectVisitorRegistered = "Novo visitante cadastrado: "

// Nome do template de e-mail do aviso de cadastro.
const TemplateVisitorRegistered = "visitor_registered.html"

// Formatos de data exibidos nos e-mails.
const (
	DateLayoutBR     = "02/01/2006"
	DateTimeLayoutBR = "02/01/2006 15:04"
)
