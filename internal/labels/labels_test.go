package labels

import (
	"testing"

	"contextgate/internal/models"
)

func TestEveryEnumHasText(t *testing.T) {
	codes := []string{
		string(models.VolumeAboveUsual), string(models.VolumeNormal), string(models.VolumeBelowUsual),
		string(models.VolatilityExpanding), string(models.VolatilityCompressed), string(models.VolatilityRangeNormal),
		string(models.OIBuilding), string(models.OIUnwinding), string(models.OIInert),
		string(models.BehaviorAccumulationLike), string(models.BehaviorHealthyParticipation),
		string(models.BehaviorExitLike), string(models.BehaviorLowEngagement), string(models.BehaviorMixed),
		string(models.VerdictTradeable), string(models.VerdictWatchOnly), string(models.VerdictNoTrade),
	}
	for _, lang := range []Language{Indonesian, English} {
		for _, code := range codes {
			if _, ok := tables[lang][code]; !ok {
				t.Errorf("%s: missing text for %s", lang, code)
			}
		}
	}
}

func TestVerdictBanner(t *testing.T) {
	if got := Text(Indonesian, string(models.VerdictNoTrade)); got != "⛔ Tidak Layak Ditrade" {
		t.Fatalf("unexpected banner %q", got)
	}
	if got := Text(Indonesian, string(models.VerdictWatchOnly)); got != "⚠️ Amati Saja" {
		t.Fatalf("unexpected banner %q", got)
	}
}

func TestTextFallbacks(t *testing.T) {
	if got := Text(English, "SOMETHING_ELSE"); got != "SOMETHING_ELSE" {
		t.Fatalf("unknown code should pass through, got %q", got)
	}
	if got := Text(Language("fr"), string(models.BehaviorMixed)); got != "Perilaku campuran" {
		t.Fatalf("unknown language should fall back to Indonesian, got %q", got)
	}
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    Language
		wantErr bool
	}{
		{"", Indonesian, false},
		{"ID", Indonesian, false},
		{" en ", English, false},
		{"fr", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLanguage(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLanguage(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestGlossary(t *testing.T) {
	if len(Glossary(Indonesian)) != len(Glossary(English)) {
		t.Fatal("glossaries differ in length")
	}
	if len(Glossary(Language("xx"))) == 0 {
		t.Fatal("fallback glossary empty")
	}
}
