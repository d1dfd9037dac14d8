// Package labels renders classification enums as human readable text.
package labels

import (
	"fmt"
	"strings"

	"contextgate/internal/models"
)

type Language string

const (
	Indonesian Language = "id"
	English    Language = "en"
)

// ParseLanguage accepts "id" or "en" (case-insensitive). Empty means Indonesian.
func ParseLanguage(s string) (Language, error) {
	switch l := Language(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return Indonesian, nil
	case Indonesian, English:
		return l, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

var tables = map[Language]map[string]string{
	Indonesian: {
		string(models.VolumeAboveUsual): "Volume di atas kebiasaan",
		string(models.VolumeNormal):     "Normal",
		string(models.VolumeBelowUsual): "Volume di bawah kebiasaan",

		string(models.VolatilityExpanding):   "Range melebar",
		string(models.VolatilityCompressed):  "Range menyempit",
		string(models.VolatilityRangeNormal): "Range normal",

		string(models.OIBuilding):  "Posisi sedang dibangun",
		string(models.OIUnwinding): "Posisi sedang ditutup",
		string(models.OIInert):     "Minat stagnan",

		string(models.BehaviorAccumulationLike):     "Indikasi akumulasi",
		string(models.BehaviorHealthyParticipation): "Partisipasi sehat",
		string(models.BehaviorExitLike):             "Indikasi distribusi / exit",
		string(models.BehaviorLowEngagement):        "Partisipasi rendah",
		string(models.BehaviorMixed):                "Perilaku campuran",

		string(models.VerdictNoTrade):   "⛔ Tidak Layak Ditrade",
		string(models.VerdictWatchOnly): "⚠️ Amati Saja",
		string(models.VerdictTradeable): "✅ Layak Dipantau",
	},
	English: {
		string(models.VolumeAboveUsual): "Volume above usual",
		string(models.VolumeNormal):     "Normal",
		string(models.VolumeBelowUsual): "Volume below usual",

		string(models.VolatilityExpanding):   "Range expanding",
		string(models.VolatilityCompressed):  "Range compressed",
		string(models.VolatilityRangeNormal): "Range normal",

		string(models.OIBuilding):  "Positions being built",
		string(models.OIUnwinding): "Positions being closed",
		string(models.OIInert):     "Interest flat",

		string(models.BehaviorAccumulationLike):     "Accumulation-like",
		string(models.BehaviorHealthyParticipation): "Healthy participation",
		string(models.BehaviorExitLike):             "Distribution / exit-like",
		string(models.BehaviorLowEngagement):        "Low engagement",
		string(models.BehaviorMixed):                "Mixed behavior",

		string(models.VerdictNoTrade):   "⛔ Not tradeable",
		string(models.VerdictWatchOnly): "⚠️ Watch only",
		string(models.VerdictTradeable): "✅ Worth monitoring",
	},
}

// Text returns the display text for an enum value. Unknown values are
// returned unchanged.
func Text(lang Language, code string) string {
	table, ok := tables[lang]
	if !ok {
		table = tables[Indonesian]
	}
	if s, ok := table[code]; ok {
		return s
	}
	return code
}

// Rendered is ContextLabels in display form.
type Rendered struct {
	Volume     string `json:"volume"`
	Volatility string `json:"volatility"`
	OI         string `json:"open_interest"`
	Behavior   string `json:"behavior"`
	Verdict    string `json:"verdict"`
}

func Render(lang Language, l models.ContextLabels) Rendered {
	return Rendered{
		Volume:     Text(lang, string(l.Volume)),
		Volatility: Text(lang, string(l.Volatility)),
		OI:         Text(lang, string(l.OI)),
		Behavior:   Text(lang, string(l.Behavior)),
		Verdict:    Text(lang, string(l.Verdict)),
	}
}

type GlossaryEntry struct {
	Term        string `json:"term"`
	Description string `json:"description"`
}

var glossaries = map[Language][]GlossaryEntry{
	Indonesian: {
		{"Indikasi akumulasi", "Volume relatif tinggi, range menyempit, dan Open Interest bertambah: posisi kemungkinan sedang dibangun."},
		{"Partisipasi sehat", "Volume dan volatilitas berkembang seimbang, pasar aktif dan responsif."},
		{"Partisipasi rendah", "Minat pasar kecil, pergerakan didominasi noise."},
		{"Indikasi distribusi / exit", "Open Interest menurun: posisi futures mulai ditutup."},
		{"Amati saja", "Konteks menarik, tetapi belum ada alasan kuat untuk masuk."},
	},
	English: {
		{"Accumulation-like", "Relative volume is high, the range is compressed and open interest is rising: positions are likely being built."},
		{"Healthy participation", "Volume and volatility expand together; the market is active and responsive."},
		{"Low engagement", "Little interest in the market; moves are mostly noise."},
		{"Distribution / exit-like", "Open interest is falling: futures positions are being closed."},
		{"Watch only", "The context is interesting but there is no strong reason to enter yet."},
	},
}

func Glossary(lang Language) []GlossaryEntry {
	if g, ok := glossaries[lang]; ok {
		return g
	}
	return glossaries[Indonesian]
}
