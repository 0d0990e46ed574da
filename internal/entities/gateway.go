package entities

import "fmt"

// Gateway identifies one of the two upstream payment processors.
type Gateway uint8

const (
	Default Gateway = iota
	Fallback
)

// Gateways lists every gateway in storage order.
var Gateways = [...]Gateway{Default, Fallback}

func (g Gateway) String() string {
	switch g {
	case Default:
		return "default"
	case Fallback:
		return "fallback"
	default:
		return fmt.Sprintf("gateway(%d)", uint8(g))
	}
}

func (g Gateway) Valid() bool {
	return g == Default || g == Fallback
}

// Opposite returns the other gateway.
func (g Gateway) Opposite() Gateway {
	if g == Default {
		return Fallback
	}
	return Default
}

// GatewayHealth is the last answer a gateway gave to a health probe.
type GatewayHealth struct {
	Failing         bool
	MinResponseTime int
}
