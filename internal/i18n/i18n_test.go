package i18n

import (
	"context"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "ProvisionalNotice")
	if got != "This score is provisional and pending final review." {
		t.Errorf("T(ProvisionalNotice) = %q", got)
	}

	got = T(ctx, "NoExplanation")
	if got != "No explanation available yet." {
		t.Errorf("T(NoExplanation) = %q", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "Passed")
	if got != "Сдано" {
		t.Errorf("T(Passed) = %q, want 'Сдано'", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "TimeTaken", map[string]any{"Minutes": 7, "Seconds": 30})
	if got != "Time taken: 7 min 30 s" {
		t.Errorf("Td(TimeTaken) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}
