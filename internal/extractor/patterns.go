package extractor

import "regexp"

// notableCommand matches the package-manager / deploy / infra command
// patterns worth remembering on their own (rule 2).
var notableCommand = regexp.MustCompile(
	`(?i)^(npm (install|uninstall|init|run|test)|pip (install|uninstall)|git (init|clone|checkout|merge|rebase|tag)|docker (build|run|compose|push|pull)|cargo |make\b|psql|mysql|mongosh|redis-cli|curl -X (POST|PUT|DELETE|PATCH)|mkdir -p|chmod|chown|systemctl|service |ssh )`,
)

// decisionPhrasing matches the decision vocabulary used by rule 4.
var decisionPhrasing = regexp.MustCompile(
	`(?i)(i'll|i will|let's|let me|we should|we'll|the approach|instead of|rather than|decided to|choosing|going with|opted for)`,
)

// decisionSuppress is rule 4's pure-intent suppress set: phrasing that
// looks like a decision but is really just "I'll go look at something".
var decisionSuppress = regexp.MustCompile(
	`(?i)(i'll read|i'll check|let me read|let me look|let me search|let me check)`,
)

// architectureVocabulary matches rule 5.
var architectureVocabulary = regexp.MustCompile(
	`(?i)(architecture|design pattern|module|component|interface|abstraction|separation of concerns|dependency|coupling|cohesion|trade-?off|approach|strategy|layer)`,
)
