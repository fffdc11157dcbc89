package classifier

// techJargon is the ~25-term technical-jargon lexicon used for the
// technical-jargon-density feature.
var techJargon = []string{
	"algorithm", "api", "asynchronous", "backend", "bandwidth", "buffer",
	"cache", "compiler", "concurrency", "database", "deadlock", "encryption",
	"framework", "garbage collection", "hash", "kernel", "latency",
	"middleware", "mutex", "parser", "pipeline", "recursion", "runtime",
	"serialization", "throughput",
}

// reasoningPhrases is the ~10-phrase lexicon used for the reasoning-density
// feature — phrases that signal a request for derivation or justification.
var reasoningPhrases = []string{
	"why does", "explain why", "derive", "prove that", "step by step",
	"reasoning behind", "what follows", "therefore", "as a result",
	"it follows that",
}

// constraintKeywords and formatKeywords back the instruction-specificity
// feature: 0.5 is awarded for a hit against each list independently.
var constraintKeywords = []string{
	"must", "should", "only", "exactly", "at least", "at most", "no more than",
	"require", "constraint", "limit",
}

var formatKeywords = []string{
	"json", "table", "bullet", "numbered list", "markdown", "csv", "yaml",
	"format:", "in the form of", "as a list",
}

// priorReferencePhrases mark a prompt that refers back to earlier context.
var priorReferencePhrases = []string{
	"as above", "as before", "previously", "earlier", "aforementioned",
	"the above", "like before", "as mentioned",
}

// intent keyword and regex lexicons.

var intentKeywords = map[string][]string{
	"code":        {"function", "bug", "compile", "refactor", "variable", "class", "code", "script", "debug"},
	"math":        {"equation", "integral", "derivative", "theorem", "probability", "matrix", "solve", "calculate"},
	"analysis":    {"analyze", "compare", "evaluate", "assess", "trend", "pattern", "implications"},
	"creative":    {"story", "poem", "imagine", "creative", "write a", "fiction", "character"},
	"translation": {"translate", "translation", "into french", "into spanish", "in english", "in chinese"},
	"qa":          {"what is", "who is", "when did", "where is", "how many", "summarize", "summary"},
}

var intentRegexes = map[string][]string{
	"code":        {`\bdef\s+\w+\(`, "```"},
	"math":        {`\b\d+\s*[/*+-]\s*\d+\b`, `[α-ωΣ∫]`},
	"analysis":    {`\bpros\s+and\s+cons\b`, `\bcompare(d)?\s+to\b`},
	"creative":    {`\bonce\s+upon\s+a\s+time\b`},
	"translation": {`\btranslate\s+.+\s+(to|into)\s+\w+`},
	"qa":          {`\?$`},
}

// requiredStrengths maps an intent to the model-catalog strength tags that
// contribute to the router's quality-match strength bonus.
var requiredStrengths = map[string][]string{
	"code":        {"code", "reasoning"},
	"math":        {"math", "reasoning"},
	"analysis":    {"analysis", "reasoning"},
	"creative":    {"creative"},
	"translation": {"translation"},
	"qa":          {"qa", "summarization"},
	"general":     {},
}

// RequiredStrengths exposes requiredStrengths to the router package.
func RequiredStrengths(intent string) []string {
	return requiredStrengths[intent]
}
