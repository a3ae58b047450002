package utils

import (
	"math/big"
	"strings"
)

var weiPerEth = new(big.Float).SetFloat64(1e18)

// smallValueCutoff is the point below which amounts get the extended
// 8-digit rendering instead of the usual 4 digits.
var smallValueCutoff = big.NewFloat(0.001)

func TruncateString(str string, num int) string {
	if len(str) <= num {
		return str
	}
	if num <= 3 {
		return str[:num]
	}
	return str[0:num-3] + "..."
}

// ShortenAddress renders a checksum address as 0x1234...abcd.
func ShortenAddress(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func AddCommas(s string) string {
	if len(s) == 0 {
		return s
	}
	parts := strings.Split(s, ".")
	integerPart := parts[0]
	sign := ""
	if strings.HasPrefix(integerPart, "-") {
		sign = "-"
		integerPart = integerPart[1:]
	}

	n := len(integerPart)
	if n <= 3 {
		return s
	}

	var result strings.Builder
	result.WriteString(sign)
	remainder := n % 3
	if remainder > 0 {
		result.WriteString(integerPart[:remainder])
		result.WriteString(",")
	}
	for i := remainder; i < n; i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(integerPart[i : i+3])
	}

	if len(parts) > 1 {
		result.WriteString(".")
		result.WriteString(parts[1])
	}
	return result.String()
}

// WeiToEth converts a raw wei amount to ether.
func WeiToEth(wei *big.Int) *big.Float {
	if wei == nil {
		return new(big.Float)
	}
	return new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEth)
}

// EthToWei converts a decimal ether string to wei. The bool reports
// whether the input parsed as a valid non-negative amount.
func EthToWei(eth string) (*big.Int, bool) {
	f, ok := new(big.Float).SetString(strings.TrimSpace(eth))
	if !ok || f.Sign() < 0 {
		return nil, false
	}
	wei, _ := new(big.Float).Mul(f, weiPerEth).Int(nil)
	return wei, true
}

// FormatBalance renders an ether amount with exactly four decimals,
// the fixed-precision form used for the headline balance.
func FormatBalance(eth *big.Float) string {
	if eth == nil {
		return "0.0000"
	}
	return eth.Text('f', 4)
}

// FormatSmartEth renders a decimal ether string for display: zero is "0",
// dust below the cutoff keeps up to eight fractional digits, everything
// else up to four, trailing zeros stripped in both cases.
func FormatSmartEth(value string) string {
	f, ok := new(big.Float).SetString(strings.TrimSpace(value))
	if !ok {
		return "0"
	}
	return FormatSmartEthBig(f)
}

func FormatSmartEthBig(f *big.Float) string {
	if f == nil || f.Sign() == 0 {
		return "0"
	}
	digits := 4
	if new(big.Float).Abs(f).Cmp(smallValueCutoff) < 0 {
		digits = 8
	}
	s := f.Text('f', digits)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
