package headless

import (
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
)

// ErrScriptTimeout is returned when a script exceeds ScriptTimeout.
var ErrScriptTimeout = errors.New("headless: script execution timed out")

// ExecuteScript implements surface.Surface. Each call gets a fresh VM so
// scripts cannot leak state between requests. The result of the final
// expression is returned as its JSON encoding, matching what a page-side
// evaluation bridge would produce.
func (s *Surface) ExecuteScript(code string) (string, error) {
	t, err := s.activeTab()
	if err != nil {
		return "", err
	}

	vm := goja.New()
	if err := setupGlobals(vm, t); err != nil {
		return "", fmt.Errorf("failed to initialize script environment: %w", err)
	}

	timer := time.NewTimer(s.cfg.ScriptTimeout)
	defer timer.Stop()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-timer.C:
			vm.Interrupt("script timeout")
		case <-done:
		}
	}()

	value, err := vm.RunString(code)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return "", ErrScriptTimeout
		}
		return "", fmt.Errorf("script error: %w", err)
	}

	return encodeResult(value)
}

// setupGlobals exposes a minimal page environment and removes Node-style
// entry points that scripts should never see.
func setupGlobals(vm *goja.Runtime, t *tab) error {
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	doc := vm.NewObject()
	if err := doc.Set("URL", t.url); err != nil {
		return err
	}
	if err := doc.Set("title", t.title); err != nil {
		return err
	}
	if err := vm.Set("document", doc); err != nil {
		return err
	}

	loc := vm.NewObject()
	if err := loc.Set("href", t.url); err != nil {
		return err
	}
	return vm.Set("location", loc)
}

func encodeResult(value goja.Value) (string, error) {
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return "null", nil
	}
	encoded, err := sonic.Marshal(value.Export())
	if err != nil {
		return "", fmt.Errorf("failed to encode script result: %w", err)
	}
	return string(encoded), nil
}
