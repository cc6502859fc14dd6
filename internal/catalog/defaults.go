package catalog

// Default test keys.
const (
	Hemoglobin     TestKey = "hemoglobin"
	WBC            TestKey = "wbc"
	Platelets      TestKey = "platelets"
	BilirubinTotal TestKey = "bilirubin_total"
	SGOT           TestKey = "sgot"
	SGPT           TestKey = "sgpt"
	Creatinine     TestKey = "creatinine"
	Urea           TestKey = "urea"
	TSH            TestKey = "tsh"
	T3             TestKey = "t3"
	T4             TestKey = "t4"
	VitaminD       TestKey = "vitamin_d"
	VitaminB12     TestKey = "vitamin_b12"
	FBS            TestKey = "fbs"
	PPBS           TestKey = "ppbs"
	HbA1c          TestKey = "hba1c"
	FSH            TestKey = "fsh"
	LH             TestKey = "lh"
	Prolactin      TestKey = "prolactin"
	AMH            TestKey = "amh"
)

// Short aliases such as "hb", "pp" or "t3" also match inside unrelated words.
// "hb" fires on "HbA1c" lines before hba1c is reached; that is the recall
// trade-off these tables make for noisy OCR text.
func defaultTests() []Test {
	return []Test{
		{Key: Hemoglobin, Aliases: []string{"hemoglobin", "hb"}},
		{Key: WBC, Aliases: []string{"wbc", "white blood cell", "total leukocyte"}},
		{Key: Platelets, Aliases: []string{"platelet", "plt"}},
		{Key: BilirubinTotal, Aliases: []string{"bilirubin"}},
		{Key: SGOT, Aliases: []string{"sgot", "ast"}},
		{Key: SGPT, Aliases: []string{"sgpt", "alt"}},
		{Key: Creatinine, Aliases: []string{"creatinine"}},
		{Key: Urea, Aliases: []string{"urea"}},
		{Key: TSH, Aliases: []string{"tsh"}},
		{Key: T3, Aliases: []string{"t3"}},
		{Key: T4, Aliases: []string{"t4"}},
		{Key: VitaminD, Aliases: []string{"vit d", "vitamin d", "25-oh"}},
		{Key: VitaminB12, Aliases: []string{"b12", "vitamin b12"}},
		{Key: FBS, Aliases: []string{"fasting", "fbs"}},
		{Key: PPBS, Aliases: []string{"pp", "post prandial"}},
		{Key: HbA1c, Aliases: []string{"hba1c"}},
		{Key: FSH, Aliases: []string{"fsh"}},
		{Key: LH, Aliases: []string{"lh"}},
		{Key: Prolactin, Aliases: []string{"prolactin"}},
		{Key: AMH, Aliases: []string{"amh", "anti mullerian"}},
	}
}

// Illustrative adult ranges, not exhaustive.
//
// "fs h" duplicates "fsh" with a stray space. It never matches exactly and only
// takes part in the substring fallback, where it precedes "fsh". It is kept so
// fallback results stay identical to the reports already on file.
func defaultThresholds() []Threshold {
	return []Threshold{
		{Key: "hemoglobin", Low: 12.0, High: 18.0, Unit: "g/dL"},
		{Key: "wbc", Low: 4000, High: 11000, Unit: "cells/uL"},
		{Key: "platelets", Low: 150000, High: 450000, Unit: "cells/uL"},
		{Key: "creatinine", Low: 0.6, High: 1.3, Unit: "mg/dL"},
		{Key: "tsh", Low: 0.4, High: 4.0, Unit: "µIU/mL"},
		{Key: "fbs", Low: 70, High: 99, Unit: "mg/dL"},
		{Key: "ppbs", Low: 70, High: 140, Unit: "mg/dL"},
		{Key: "hba1c", Low: 4.0, High: 5.6, Unit: "%"},
		{Key: "amh", Low: 0.5, High: 3.5, Unit: "ng/mL"},
		{Key: "fs h", Low: 1.0, High: 15.0, Unit: ""},
		{Key: "fsh", Low: 1.0, High: 15.0, Unit: ""},
	}
}
