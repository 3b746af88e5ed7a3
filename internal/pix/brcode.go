package pix

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// EMV MPM field ids used by the BR Code.
const (
	idPayloadFormat      = "00"
	idPointOfInitiation  = "01"
	idMerchantAccount    = "26"
	idMerchantAccountGUI = "00"
	idMerchantAccountKey = "01"
	idMerchantCategory   = "52"
	idCurrency           = "53"
	idAmount             = "54"
	idCountry            = "58"
	idMerchantName       = "59"
	idMerchantCity       = "60"
	idAdditionalData     = "62"
	idTxID               = "05"
	idCRC                = "63"

	pixGUI         = "br.gov.bcb.pix"
	currencyBRL    = "986"
	maxNameLength  = 25
	maxCityLength  = 15
	maxTxIDLength  = 25
	maxFieldLength = 99
)

var (
	ErrMissingKey    = errors.New("pix key is required")
	ErrInvalidAmount = errors.New("pix amount must be positive")
)

// Payload describes a single use BR Code.
type Payload struct {
	Key          string
	MerchantName string
	MerchantCity string
	Amount       decimal.Decimal
	TxID         string
}

// Build renders the copy-and-paste BR Code string, CRC included.
func (p Payload) Build() (string, error) {
	if strings.TrimSpace(p.Key) == "" {
		return "", ErrMissingKey
	}
	if !p.Amount.IsPositive() {
		return "", ErrInvalidAmount
	}

	account, err := joinFields(
		field{idMerchantAccountGUI, pixGUI},
		field{idMerchantAccountKey, strings.TrimSpace(p.Key)},
	)
	if err != nil {
		return "", err
	}

	txid := TxID(p.TxID)
	if txid == "" {
		txid = "***"
	}
	additional, err := joinFields(field{idTxID, txid})
	if err != nil {
		return "", err
	}

	body, err := joinFields(
		field{idPayloadFormat, "01"},
		field{idPointOfInitiation, "12"},
		field{idMerchantAccount, account},
		field{idMerchantCategory, "0000"},
		field{idCurrency, currencyBRL},
		field{idAmount, p.Amount.StringFixed(2)},
		field{idCountry, "BR"},
		field{idMerchantName, sanitize(p.MerchantName, maxNameLength)},
		field{idMerchantCity, sanitize(p.MerchantCity, maxCityLength)},
		field{idAdditionalData, additional},
	)
	if err != nil {
		return "", err
	}

	body += idCRC + "04"

	return body + fmt.Sprintf("%04X", CRC16(body)), nil
}

// TxID keeps the ASCII letters and digits of ref, at most 25 of them.
func TxID(ref string) string {
	var b strings.Builder
	for _, r := range ref {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			if b.Len() == maxTxIDLength {
				break
			}
		}
	}

	return b.String()
}

// CRC16 is CRC-16/CCITT-FALSE: polynomial 0x1021, initial value 0xFFFF.
func CRC16(data string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(data); i++ {
		crc ^= uint16(data[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}

type field struct {
	id    string
	value string
}

func joinFields(fields ...field) (string, error) {
	var b strings.Builder
	for _, f := range fields {
		if len(f.value) > maxFieldLength {
			return "", fmt.Errorf("pix field %s is %d bytes long", f.id, len(f.value))
		}
		b.WriteString(f.id)
		b.WriteString(fmt.Sprintf("%02d", len(f.value)))
		b.WriteString(f.value)
	}

	return b.String(), nil
}

// sanitize strips accents, upper-cases and truncates names for the BR Code.
func sanitize(s string, max int) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}

	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(plain)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ') {
			b.WriteRune(r)
		}
	}

	out := b.String()
	if len(out) > max {
		out = strings.TrimSpace(out[:max])
	}

	return out
}
