package fina

import (
	"crypto"
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ComputeZKI derives the protective code binding company identity,
// register/location, receipt number and payment time/amount to the entity's
// private key.
//
// The canonical string concatenates, in protocol order: company OIB, local
// payment time, receipt number, location ID, register ID and the amount
// with two decimals. The string is signed RSA-PKCS1v15 over SHA-1 and the
// raw signature is reduced with MD5 to 32 lowercase hex characters. Both
// hash choices are mandated by the protocol; the authority rejects receipts
// whose ZKI was derived any other way.
func ComputeZKI(
	ctx *SigningContext,
	policy TimePolicy,
	companyOIB string,
	paymentTime time.Time,
	receiptNumber int64,
	locationID, registerID string,
	amount decimal.Decimal,
) (string, error) {
	data := companyOIB +
		policy.ZKITimestamp(paymentTime) +
		strconv.FormatInt(receiptNumber, 10) +
		locationID +
		registerID +
		amount.StringFixed(2)

	digest := sha1.Sum([]byte(data))
	signature, err := rsa.SignPKCS1v15(rand.Reader, ctx.PrivateKey(), crypto.SHA1, digest[:])
	if err != nil {
		return "", fmt.Errorf("signing protective code input: %w", err)
	}

	code := md5.Sum(signature)
	return hex.EncodeToString(code[:]), nil
}
