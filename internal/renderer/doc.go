// Package renderer draws a document's visual lines on a tcell screen.
//
// A View shows a window of rows starting at a scroll position. Each row is
// one visual line: a gutter with the origin line number and fold icon,
// followed by the shaped cells of the line's segment. Synthetic text such as
// inlay hints, diagnostics and fold placeholders is styled by phantom kind;
// buffer text by the syntax style spans installed on the model.
//
// Usage:
//
//	v := renderer.NewView(doc, renderer.DefaultTheme(), renderer.DefaultOptions())
//	v.SetBounds(0, 0, width, height)
//	v.Draw(screen)
//	screen.Show()
package renderer
