// Package moinmoin converts Etherpad pads to MoinMoin wiki markup.
//
// A pad's attributed text is walked line by line. Inline bold, italic,
// underline and strikethrough runs become nested MoinMoin tags, heading
// lines become "= Title =" through "====== Title ======", runs of code
// lines are fenced with {{{ and }}}, and list items get their indentation
// and marker back. Every line is self-contained: tags opened on a line are
// closed on it.
//
// Core properties:
//   - Attributions are decoded run by run, never per character
//   - Tags always nest bold, italic, underline, strikethrough (outermost first)
//   - Lengths are UTF-16 code units, as Etherpad counts them
//   - Conversion is deterministic and either complete or an error
//
// Example:
//
//	store := padstore.New(padstore.NewMemory())
//	markup, err := moinmoin.Export(ctx, moinmoin.ExportRequest{
//		Store: store,
//		PadID: "notes",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Print(markup)
//
// Convert works on an attributed text and pool already in hand, and Handler
// serves exports over HTTP on Etherpad's export paths.
package moinmoin
