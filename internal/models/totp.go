package models

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/pquerna/otp/totp"
)

// TOTPEnrollment is a freshly generated authenticator secret plus the QR
// code (as a data URI) the user scans to add it. The secret stays disabled
// on the account until a first code verifies against it.
type TOTPEnrollment struct {
	Secret string
	QRCode string
}

func NewTOTPEnrollment(issuer, account string) (TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("generating totp secret: %w", err)
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("rendering totp qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return TOTPEnrollment{}, fmt.Errorf("encoding totp qr code: %w", err)
	}

	return TOTPEnrollment{
		Secret: key.Secret(),
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// VerifyTOTPCode checks a 6-digit code against a stored secret.
func VerifyTOTPCode(secret, code string) bool {
	return totp.Validate(code, secret)
}
