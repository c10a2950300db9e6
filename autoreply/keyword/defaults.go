package keyword

// DefaultRules returns the built-in rule set used when no rules file is
// configured. Keyword entries match whole words; the blacklist is a plain
// substring check so obfuscated fragments still hit.
func DefaultRules() *RuleSet {
	rs := &RuleSet{
		Keywords:  make([]Rule, 0, 64),
		Blacklist: make([]Rule, 0, 16),
	}

	indiaTopics := []string{
		"india", "indian", "delhi", "mumbai", "bangalore", "chennai", "kolkata",
		"modi", "bjp", "congress", "bollywood", "cricket", "ipl", "rupee",
		"diwali", "holi", "monsoon", "chai", "samosa", "biryani",
		"startup", "tech hub", "silicon valley of india", "it sector",
	}
	for _, pat := range indiaTopics {
		rs.Keywords = append(rs.Keywords, Rule{
			Pattern:   pat,
			MatchType: MatchExact,
			Scope:     ScopeBoth,
			Priority:  3,
			Category:  "india_specific",
		})
	}

	adviceTopics := []string{
		"advice", "help", "suggestion", "recommend", "opinion",
		"what should i", "how do i", "need help", "confused",
		"career", "job", "interview", "salary", "work",
		"relationship", "dating", "marriage", "family",
	}
	for _, pat := range adviceTopics {
		rs.Keywords = append(rs.Keywords, Rule{
			Pattern:   pat,
			MatchType: MatchExact,
			Scope:     ScopeBoth,
			Priority:  2,
			Category:  "helpful_advice",
		})
	}

	techTopics := []string{
		"programming", "coding", "developer", "software", "python",
		"javascript", "react", "ai", "machine learning", "data science",
		"startup", "tech", "algorithm", "database", "api",
	}
	for _, pat := range techTopics {
		rs.Keywords = append(rs.Keywords, Rule{
			Pattern:   pat,
			MatchType: MatchExact,
			Scope:     ScopeBoth,
			Priority:  2,
			Category:  "tech_discussion",
		})
	}

	blocked := []string{
		"suicide", "depression", "self harm", "drugs", "illegal",
		"porn", "nsfw", "hate", "violence", "terrorist",
	}
	for _, pat := range blocked {
		rs.Blacklist = append(rs.Blacklist, Rule{
			Pattern:   pat,
			MatchType: MatchPartial,
			Scope:     ScopeBoth,
		})
	}

	if err := rs.Compile(); err != nil {
		panic(err)
	}
	return rs
}
