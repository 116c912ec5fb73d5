package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetaOverlayLatestWins(t *testing.T) {
	m := NewMetaObservable(Meta{"room": "kitchen", "vendor": "acme"})
	m.SetChildMeta(Meta{"vendor": "acme-child"})
	m.SetAttachMeta(Meta{"room": "lab"})

	current := m.Current()
	assert.Equal(t, "lab", current["room"])
	assert.Equal(t, "acme-child", current["vendor"])
}

func TestMetaSubscribeDeliversCurrentImmediately(t *testing.T) {
	m := NewMetaObservable(Meta{"a": 1})
	ch := m.Subscribe()
	got := <-ch
	assert.Equal(t, 1, got["a"])
}
