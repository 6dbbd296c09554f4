package safety

import "testing"

func TestCheck(t *testing.T) {
	f := New()

	tests := []struct {
		message string
		want    Category
	}{
		{"我最近壓力好大，有時候覺得不想活了", CategorySelfHarm},
		{"I just want to end my life", CategorySelfHarm},
		{"他這樣對我，我想殺了他", CategoryViolence},
		{"醫生說是癌症，你幫我看會不會好", CategoryMedical},
		{"我可以自己停藥嗎", CategoryMedical},
		{"這場官司我會不會贏", CategoryLegal},
		{"我想把存款全部投入這支股票", CategoryFinancial},
		{"我應該借錢投資嗎", CategoryFinancial},
	}
	for _, tt := range tests {
		got := f.Check(tt.message)
		if got == nil {
			t.Errorf("Check(%q) = nil, want %s", tt.message, tt.want)
			continue
		}
		if got.Category != tt.want {
			t.Errorf("Check(%q) = %s, want %s", tt.message, got.Category, tt.want)
		}
		if got.Reply == "" {
			t.Errorf("Check(%q) returned empty reply", tt.message)
		}
	}
}

func TestCheckPassesNormalMessages(t *testing.T) {
	f := New()
	for _, message := range []string{
		"你好，我想看看我的紫微命盤",
		"我是1990年7月22日早上8點30分出生的女生",
		"最近工作運如何？",
		"幫我抽一張塔羅牌",
		"我最近在考慮換工作，想聽聽你的看法",
	} {
		if got := f.Check(message); got != nil {
			t.Errorf("Check(%q) = %s, want pass", message, got.Category)
		}
	}
}
