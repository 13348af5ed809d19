// Package lsp holds the Language Server Protocol value types consumed by the
// line model (positions, ranges, diagnostics, inlay hints) and the UTF-16
// column conversions that LSP positions require.
//
// Positions carry UTF-16 character offsets; the rest of the module works in
// byte offsets. Use UTF16ToByte and ByteToUTF16 on a single line's content to
// move between the two.
package lsp
