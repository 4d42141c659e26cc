package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid node configuration")

// Validate checks the model for problems that do not depend on which module
// types are compiled in: duplicate names, missing fields and tasks that
// refer to unknown modules.
func (m *Model) Validate() error {
	var errs []string

	if m.Server != nil && (m.Server.Port < 0 || m.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port %d is out of range", m.Server.Port))
	}

	seen := make(map[string]string)
	claim := func(kind, name string) {
		if name == "" {
			errs = append(errs, fmt.Sprintf("%s: name must not be empty", kind))
			return
		}
		if prev, ok := seen[name]; ok {
			errs = append(errs, fmt.Sprintf("%s '%s': name already used by a %s", kind, name, prev))
			return
		}
		seen[name] = kind
	}

	for _, s := range m.Shares {
		claim("share", s.Name)
		if s.Module == "" {
			errs = append(errs, fmt.Sprintf("share '%s': module must not be empty", s.Name))
		}
	}
	for _, r := range m.Remotes {
		claim("remote", r.Name)
		if r.URL == "" {
			errs = append(errs, fmt.Sprintf("remote '%s': url must not be empty", r.Name))
		}
	}

	modules := m.ModuleNames()
	tasks := make(map[string]struct{})
	for _, t := range m.Tasks {
		if _, dup := tasks[t.Name]; dup {
			errs = append(errs, fmt.Sprintf("task '%s': declared more than once", t.Name))
		}
		tasks[t.Name] = struct{}{}
		if _, ok := modules[t.Module]; !ok {
			errs = append(errs, fmt.Sprintf("task '%s': module '%s' is neither shared nor remote", t.Name, t.Module))
		}
		switch t.Kind {
		case KindRun, "":
			if t.Method == "" {
				errs = append(errs, fmt.Sprintf("task '%s': method must not be empty", t.Name))
			}
			if t.Pre != "" || t.Post != "" {
				errs = append(errs, fmt.Sprintf("task '%s': pre and post are only valid for kind '%s'", t.Name, KindPrePost))
			}
		case KindPrePost:
			if t.Pre == "" && t.Post == "" {
				errs = append(errs, fmt.Sprintf("task '%s': a prepost task needs pre or post", t.Name))
			}
			if t.Method != "" || t.Interruptable {
				errs = append(errs, fmt.Sprintf("task '%s': method and interruptable are only valid for kind '%s'", t.Name, KindRun))
			}
		default:
			errs = append(errs, fmt.Sprintf("task '%s': unknown kind '%s' (want '%s' or '%s')", t.Name, t.Kind, KindRun, KindPrePost))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n- %s", ErrInvalid, strings.Join(errs, "\n- "))
	}
	return nil
}
