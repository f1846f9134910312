package domain

// Split divides a gross sale amount (minor currency units) into the platform
// fee and the payee share. The fee rounds half-up; the remainder goes to the
// payee, so fee+payee always equals gross exactly.
func Split(gross int64, feePercent int64) (fee int64, payee int64) {
	if gross <= 0 {
		return 0, gross
	}
	if feePercent <= 0 {
		return 0, gross
	}
	if feePercent >= 100 {
		return gross, 0
	}
	fee = (gross*feePercent + 50) / 100
	return fee, gross - fee
}
