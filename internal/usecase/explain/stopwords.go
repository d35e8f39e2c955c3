package explain

// stopwords are common English words of three letters or more.
var stopwords = toSet(
	"about", "above", "after", "again", "against", "all", "almost", "alone", "along", "already",
	"also", "although", "always", "among", "amongst", "and", "another", "any", "anyhow", "anyone",
	"anything", "anyway", "anywhere", "are", "around", "back", "became", "because", "become",
	"becomes", "been", "before", "behind", "being", "below", "beside", "besides", "between",
	"beyond", "both", "but", "can", "cannot", "could", "did", "does", "doing", "done", "down",
	"during", "each", "either", "else", "elsewhere", "enough", "even", "ever", "every", "everyone",
	"everything", "everywhere", "except", "few", "for", "former", "from", "further", "get", "give",
	"had", "has", "have", "having", "her", "here", "hers", "herself", "him", "himself", "his",
	"how", "however", "into", "its", "itself", "just", "last", "latter", "least", "less", "made",
	"many", "may", "meanwhile", "might", "mine", "more", "moreover", "most", "mostly", "much",
	"must", "myself", "neither", "never", "nevertheless", "next", "nobody", "none", "nor", "not",
	"nothing", "now", "nowhere", "off", "often", "once", "one", "only", "onto", "other", "others",
	"otherwise", "our", "ours", "ourselves", "out", "over", "own", "per", "perhaps", "please",
	"put", "rather", "same", "see", "seem", "seemed", "seeming", "seems", "several", "she",
	"should", "since", "some", "somehow", "someone", "something", "sometime", "sometimes",
	"somewhere", "still", "such", "than", "that", "the", "their", "theirs", "them", "themselves",
	"then", "thence", "there", "thereafter", "thereby", "therefore", "therein", "these", "they",
	"this", "those", "though", "through", "throughout", "thus", "together", "too", "toward",
	"towards", "under", "until", "upon", "very", "via", "was", "well", "were", "what", "whatever",
	"when", "whence", "whenever", "where", "whereas", "whether", "which", "while", "who", "whoever",
	"whole", "whom", "whose", "why", "will", "with", "within", "without", "would", "yet", "you",
	"your", "yours", "yourself", "yourselves", "said", "say", "says", "shall",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
