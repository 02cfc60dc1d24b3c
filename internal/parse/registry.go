package parse

import (
	"fmt"
	"sort"
	"strings"

	"chainledger/internal/domain"
	"chainledger/internal/faults"
)

// capability binds one parser to a set of method signatures under a protocol.
// An empty method set matches any method of the protocol.
type capability struct {
	methods map[string]struct{}
	parser  Parser
}

func (c capability) matches(method string) bool {
	if len(c.methods) == 0 {
		return true
	}
	_, ok := c.methods[method]
	return ok
}

// Registry dispatches transactions to parsers keyed by
// (protocol, method signature set).
type Registry struct {
	caps map[domain.Protocol][]capability
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[domain.Protocol][]capability)}
}

// Register binds a parser to a protocol and a set of method signatures.
// A nil or empty method list registers a protocol-wide parser. Registering
// the same (protocol, method set) key twice, or a method already covered by
// an earlier registration for the protocol, returns an error.
func (r *Registry) Register(protocol domain.Protocol, methods []string, p Parser) error {
	if p == nil {
		return fmt.Errorf("register %s: nil parser", protocol)
	}
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		set[m] = struct{}{}
	}
	for _, existing := range r.caps[protocol] {
		if len(existing.methods) == 0 && len(set) == 0 {
			return fmt.Errorf("register %s: duplicate protocol-wide parser", protocol)
		}
		for m := range set {
			if _, ok := existing.methods[m]; ok {
				return fmt.Errorf("register %s: method %q already registered", protocol, m)
			}
		}
	}
	r.caps[protocol] = append(r.caps[protocol], capability{methods: set, parser: p})
	return nil
}

// Dispatch selects the parser registered for the transaction's protocol and
// method. A protocol with registrations but no match for the method yields
// an UnhandledFunctionError.
func (r *Registry) Dispatch(protocol domain.Protocol, tx *domain.RawTransaction) (Parser, error) {
	caps, ok := r.caps[protocol]
	if !ok || len(caps) == 0 {
		return nil, &faults.UnknownContractError{Chain: tx.Chain, Address: tx.To}
	}
	method := MethodName(tx)
	for _, c := range caps {
		if c.matches(method) {
			return c.parser, nil
		}
	}
	return nil, &faults.UnhandledFunctionError{Protocol: protocol, Method: method}
}

// Protocols returns the registered protocols in sorted order.
func (r *Registry) Protocols() []domain.Protocol {
	out := make([]domain.Protocol, 0, len(r.caps))
	for p := range r.caps {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MethodName returns the bare method name of a decoded call, stripping any
// argument list from the signature. Undecoded transactions yield "".
func MethodName(tx *domain.RawTransaction) string {
	if tx.Decoded == nil {
		return ""
	}
	m := tx.Decoded.Method
	if i := strings.IndexByte(m, '('); i >= 0 {
		m = m[:i]
	}
	return m
}
