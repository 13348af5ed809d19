// Package lines maintains the line model of an editor buffer: the mapping
// from buffer byte offsets to what is drawn on screen.
//
// The model has three levels:
//
//   - Origin lines are the raw lines of the buffer.
//   - Folded lines are rendered units. A unit is one origin line, or several
//     merged because collapsed folds hide the text between them.
//   - Visual lines are the wrap segments of a unit's composed text.
//
// A unit's composed text is its visible origin text with synthetic text
// spliced in: inlay hints, diagnostics, completion ghost text, IME preedit
// and fold placeholders. ComposedLine keeps the tables that map columns
// between origin and composed text in both directions.
//
// After an edit, DocLines classifies the document with PlanDelta into an
// untouched prefix, a region to recompute and a suffix that is reused with
// its line numbers and offsets shifted. The same split is applied to units
// and visual lines, and the result always equals a full rebuild of the
// edited buffer.
//
// Every update publishes a new immutable Snapshot. Readers hold snapshots
// and never observe a partial update.
//
// Basic usage:
//
//	buf := buffer.NewFromString("func main() {\n}\n")
//	doc := lines.New(buf, lines.WithConfig(cfg))
//	doc.ApplyEdit(buffer.NewInsert(13, "\n\tprintln()"))
//	snap := doc.Snapshot()
//	for _, vl := range snap.VisualLinesForRows(0, 40) {
//		// draw vl
//	}
package lines
