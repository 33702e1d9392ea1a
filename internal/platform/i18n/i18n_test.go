package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"civitas/pkg/requestcontext"
)

func TestSprintf(t *testing.T) {
	t.Run("defaults to portuguese", func(t *testing.T) {
		got := Sprintf(context.Background(), MsgProtocolSubmitted, "PROT-2025-00001")
		assert.Equal(t, "Protocolo PROT-2025-00001 aberto com sucesso.", got)
	})

	t.Run("uses the request locale", func(t *testing.T) {
		ctx := requestcontext.WithLocale(context.Background(), "en-US")
		got := Sprintf(ctx, MsgPoliceReportCreated, "BO-2025-00001")
		assert.Equal(t, "Police report BO-2025-00001 registered successfully.", got)
	})

	t.Run("unsupported locale falls back", func(t *testing.T) {
		ctx := requestcontext.WithLocale(context.Background(), "ja")
		got := Sprintf(ctx, MsgCustomRecordCreated, "CUS-2025-00001")
		assert.Equal(t, "Registro CUS-2025-00001 criado.", got)
	})
}

func TestNegotiate(t *testing.T) {
	assert.Equal(t, language.English, baseTag(Negotiate("en-GB,en;q=0.8")))
	assert.Equal(t, Default(), Negotiate(""))
	assert.Equal(t, Default(), Negotiate("%%%"))
}
