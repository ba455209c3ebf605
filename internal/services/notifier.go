package services

// Notifier delivers verification codes to users out of band, typically by
// email. Delivery is best-effort: a send failure never rolls back the state
// change that produced the code.
type Notifier interface {
	SendVerificationCode(toEmail, code, codeType, username string) error
}
