package remote

import (
	"context"
	"sort"
)

// Operation names on the wire.
const (
	opGetModule = "getModule"
	opCall      = "call"
)

// Method is a remotely callable function of a shared object.
type Method func(ctx context.Context, args ...any) (any, error)

// Exporter is implemented by shared objects that want methods callable
// through a Proxy. Objects that do not implement it can still be shared and
// resolved, but every Call on their Proxy fails.
type Exporter interface {
	Exports() map[string]Method
}

// Reference is the wire form of a shared module.
type Reference struct {
	ID      string
	Name    string
	Methods []string
}

func exportedMethods(obj any) []string {
	exp, ok := obj.(Exporter)
	if !ok {
		return []string{}
	}
	names := make([]string, 0)
	for name := range exp.Exports() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r Reference) toWire() map[string]any {
	methods := make([]any, len(r.Methods))
	for i, m := range r.Methods {
		methods[i] = m
	}
	return map[string]any{"id": r.ID, "name": r.Name, "methods": methods}
}

// referenceFromWire decodes an ack payload; ok is false for null or
// malformed payloads.
func referenceFromWire(v any) (Reference, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Reference{}, false
	}
	id, _ := m["id"].(string)
	name, _ := m["name"].(string)
	if id == "" || name == "" {
		return Reference{}, false
	}
	ref := Reference{ID: id, Name: name}
	if raw, ok := m["methods"].([]any); ok {
		for _, item := range raw {
			if s, ok := item.(string); ok {
				ref.Methods = append(ref.Methods, s)
			}
		}
	}
	return ref, true
}

// callReply is the wire form of a call result.
type callReply struct {
	Result   any
	Error    string
	NotFound bool
}

func (r callReply) toWire() map[string]any {
	out := map[string]any{"result": r.Result}
	if r.Error != "" {
		out["error"] = r.Error
	}
	if r.NotFound {
		out["notFound"] = true
	}
	return out
}

func callReplyFromWire(v any) (callReply, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return callReply{}, false
	}
	reply := callReply{Result: m["result"]}
	reply.Error, _ = m["error"].(string)
	reply.NotFound, _ = m["notFound"].(bool)
	return reply, true
}
