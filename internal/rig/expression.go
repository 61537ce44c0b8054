package rig

import "fmt"

// Expression is a blendshape preset name.
type Expression string

// Expression presets driven by face tracking.
const (
	Blink      Expression = "blink"
	BlinkLeft  Expression = "blinkLeft"
	BlinkRight Expression = "blinkRight"
	Aa         Expression = "aa"
	Ih         Expression = "ih"
	Ou         Expression = "ou"
	Ee         Expression = "ee"
	Oh         Expression = "oh"
)

var allExpressions = []Expression{Blink, BlinkLeft, BlinkRight, Aa, Ih, Ou, Ee, Oh}

// AllExpressions returns every expression preset.
func AllExpressions() []Expression {
	out := make([]Expression, len(allExpressions))
	copy(out, allExpressions)
	return out
}

// ParseExpression validates an expression preset name.
func ParseExpression(s string) (Expression, error) {
	for _, e := range allExpressions {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown expression %q", s)
}

func (e Expression) String() string { return string(e) }
