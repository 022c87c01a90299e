package lexer

// moneyScanLimit bounds the forward scan used to disambiguate money
// literals from positional parameters.
const moneyScanLimit = 64

// moneyLiteralLen reports how many characters of s form a money literal
// body ($ already consumed): a digit run, one or more comma groups of
// exactly three digits, and an optional two-digit decimal tail. It
// returns 0 when s does not start a money literal, in which case the
// caller lexes a positional parameter instead.
func moneyLiteralLen(s string) int {
	i := 0
	for i < len(s) && isASCIIDigit(s[i]) {
		i++
	}
	if i == 0 {
		return 0
	}

	groups := 0
	for i < len(s) && s[i] == ',' {
		if !hasThreeDigitGroup(s[i+1:]) {
			break
		}
		i += 4
		groups++
	}
	if groups == 0 {
		return 0
	}

	if n := decimalTailLen(s[i:]); n > 0 {
		i += n
	}
	return i
}

// hasThreeDigitGroup reports whether s starts with exactly three digits
// not followed by a fourth.
func hasThreeDigitGroup(s string) bool {
	if len(s) < 3 {
		return false
	}
	for j := 0; j < 3; j++ {
		if !isASCIIDigit(s[j]) {
			return false
		}
	}
	return len(s) == 3 || !isASCIIDigit(s[3])
}

// decimalTailLen matches an optional ".dd" money suffix.
func decimalTailLen(s string) int {
	if len(s) >= 3 && s[0] == '.' && isASCIIDigit(s[1]) && isASCIIDigit(s[2]) {
		if len(s) == 3 || !isASCIIDigit(s[3]) {
			return 3
		}
	}
	return 0
}

func isASCIIDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
