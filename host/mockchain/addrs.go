package mockchain

import "cavernlsd/crypto"

// Addr returns a stable account address for label.
func Addr(label string) string {
	return crypto.DeriveAddress(crypto.TerraPrefix, label).String()
}

// Contract returns a stable contract address for label.
func Contract(label string) string {
	return crypto.DeriveContractAddress(crypto.TerraPrefix, label).String()
}
