/*
Package markov compiles text into N-gram Markov chain graphs and walks them
to produce parody text that imitates the word patterns of the source.

A Compiler tokenizes the input, assigns every unique word a WordID in a
Dictionary and records, for each History of Order consecutive IDs, how often
each word followed it. The resulting Graph is immutable. A Codec stores it in a
compact binary layout, and ExportJSON writes a readable interchange form.

A Walker starts at a History and repeatedly draws the next word from the
current transition Table, sliding the window forward until the requested
number of words is produced or a history has no transitions.

	compiler := markov.NewCompiler(markov.NewDefaultTokenizer())
	graph, err := compiler.Compile(ctx, strings.NewReader(text), 2)
	if err != nil {
		return err
	}
	start, _ := graph.RandomHistory(nil)
	words := markov.NewWalker(graph, start, nil).Generate(50)
*/
package markov
