package token

import "strings"

var (
	tokenInfoKey    = []byte("token/info")
	minterKey       = []byte("token/minter")
	balancePrefix   = []byte("token/balance/")
	allowancePrefix = []byte("token/allowance/")
)

func balanceKey(addr string) []byte {
	trimmed := strings.TrimSpace(addr)
	buf := make([]byte, len(balancePrefix)+len(trimmed))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], trimmed)
	return buf
}

func allowanceKey(owner, spender string) []byte {
	suffix := strings.TrimSpace(owner) + "/" + strings.TrimSpace(spender)
	buf := make([]byte, len(allowancePrefix)+len(suffix))
	copy(buf, allowancePrefix)
	copy(buf[len(allowancePrefix):], suffix)
	return buf
}
