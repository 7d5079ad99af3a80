package vectorize

// Embed returns the mean vector of the known tokens. Unknown tokens are
// skipped; with no known token the result is the zero vector of table.Dim().
func Embed(tokens []string, table Table) []float64 {
	out := make([]float64, table.Dim())
	known := 0
	for _, tok := range tokens {
		v, ok := table.Lookup(tok)
		if !ok {
			continue
		}
		for i, x := range v {
			out[i] += float64(x)
		}
		known++
	}
	if known == 0 {
		return out
	}
	for i := range out {
		out[i] /= float64(known)
	}
	return out
}

// EmbedAll embeds every token list.
func EmbedAll(tokens [][]string, table Table) [][]float64 {
	out := make([][]float64, len(tokens))
	for i, t := range tokens {
		out[i] = Embed(t, table)
	}
	return out
}
