package patterns

// Builtin rule tables. Weights are tuned so that a single hit in a strong
// category lands near 0.3 and two to three independent hits cross the fraud
// thresholds. Set sizes matter: a set's contribution is weight * hits/size.

// builtinFraudSets are the default fraud indicator sets
func builtinFraudSets() []Set {
	return []Set{
		{
			Name:     "unrealistic_salary",
			Category: "compensation",
			Keywords: []string{
				"guaranteed income", "guaranteed salary", "guaranteed earnings",
				"unlimited earning", "make money fast", "double your income",
				"earn thousands weekly",
			},
			Regexes: []string{
				`\$\d[\d,]*\s*(?:per|a|/)\s*(?:day|week)`,
				`earn\s+up\s+to\s+\$?\d[\d,]*`,
			},
			Weight: 2.7,
		},
		{
			Name:     "upfront_payment",
			Category: "payment",
			Keywords: []string{
				"registration fee", "processing fee", "starter kit",
				"training fee", "activation fee", "administration fee",
				"refundable deposit", "upfront payment",
			},
			Regexes: []string{
				`(?:pay|send)\s+\$?\d[\d,]*\s+(?:to|before)`,
			},
			Weight: 3.0,
		},
		{
			Name:     "irregular_payment",
			Category: "payment",
			Keywords: []string{
				"western union", "moneygram", "bitcoin", "cryptocurrency",
				"gift card", "gift cards", "wire transfer", "cash app",
				"prepaid card", "money order",
			},
			Weight: 3.0,
		},
		{
			Name:     "off_platform_contact",
			Category: "contact",
			Keywords: []string{
				"whatsapp", "telegram", "google hangouts", "text us at",
				"contact via text", "personal email only", "reply to this number",
				"dm us",
			},
			Weight: 2.4,
		},
		{
			Name:     "personal_info_harvest",
			Category: "identity",
			Keywords: []string{
				"social security number", "ssn", "bank account details",
				"routing number", "bank login", "copy of passport",
				"driver's license number", "mother's maiden name",
			},
			Weight: 2.4,
		},
		{
			Name:     "urgency_pressure",
			Category: "pressure",
			Keywords: []string{
				"apply immediately", "urgent hiring", "start today",
				"limited slots", "act now", "immediate start",
				"first come first served", "positions filling fast",
			},
			Weight: 1.6,
		},
		{
			Name:     "no_experience_bait",
			Category: "experience",
			Keywords: []string{
				"no experience needed", "no experience required",
				"no skills required", "no interview", "anyone can apply",
				"no background check",
			},
			Weight: 1.2,
		},
	}
}

// builtinLegitSets are the default legitimacy indicator sets
func builtinLegitSets() []Set {
	return []Set{
		{
			Name:     "qualification_requirements",
			Category: "requirements",
			Keywords: []string{
				"years of experience", "years experience", "bachelor's degree",
				"master's degree", "degree in", "qualifications",
				"required skills", "proficiency in", "certification",
				"requirements",
			},
			Weight: 1.0,
		},
		{
			Name:     "benefits_package",
			Category: "benefits",
			Keywords: []string{
				"health insurance", "dental insurance", "vision insurance",
				"401(k)", "401k", "paid time off", "retirement plan",
				"parental leave", "equity", "benefits",
			},
			Weight: 1.0,
		},
		{
			Name:     "company_history",
			Category: "company",
			Keywords: []string{
				"founded", "established in", "our mission", "company culture",
				"headquartered in", "about us", "equal opportunity employer",
				"our team",
			},
			Weight: 0.8,
		},
		{
			Name:     "structured_process",
			Category: "process",
			Keywords: []string{
				"interview process", "hiring process", "background check",
				"job description", "responsibilities include", "reporting to",
				"onboarding", "cover letter",
			},
			Weight: 0.8,
		},
	}
}

// fallbackFraudSet is the minimal hard-coded list used when no pattern data
// is available at all; scoring with it is flagged rule_based_fallback
func fallbackFraudSet() []Set {
	return []Set{
		{
			Name:     "fraud_indicators",
			Category: "fallback",
			Keywords: []string{
				"registration fee", "western union", "wire transfer",
				"guaranteed income", "no experience needed", "processing fee",
				"gift card", "whatsapp", "bitcoin", "starter kit",
			},
			Weight: 3.0,
		},
	}
}
