// Package io provides JSON import and export for diagram documents.
//
// # JSON Format
//
// A document file is the document snapshot: one object per module, each
// holding its nodes under "data":
//
//	{
//	  "Home": {
//	    "data": {
//	      "n1": {
//	        "id": "n1",
//	        "name": "source",
//	        "data": {},
//	        "inputs": {},
//	        "outputs": {
//	          "output_1": {"connections": [{"node": "n2", "output": "input_1"}]}
//	        },
//	        "positionX": 10,
//	        "positionY": 20
//	      },
//	      "n2": { ... }
//	    }
//	  }
//	}
//
// Output-side connection records name the input node and the input port
// ("output" holds the id of the port they point at); input-side records name
// the output node and output port under "input". Waypoints are stored as
// "points" on output-side records.
//
// Files written by older editors wrap the snapshot in a top-level "drawflow"
// object and may use pos_x/pos_y instead of positionX/positionY; both forms
// are accepted on import. Export always writes the current form.
//
// # Import
//
// Use [ImportJSON] to read a document from a file path, or [ReadJSON] to read
// from any io.Reader:
//
//	doc, err := io.ImportJSON("diagram.json")
//
// Imports are validated: a snapshot whose wires are stored on one side only,
// cross modules or loop back onto their own node is rejected with a
// CORRUPT_MODEL error.
//
// # Export
//
// Use [ExportJSON] to write a document to a file, or [WriteJSON] to write to
// any io.Writer. Import followed by export reproduces the input byte for byte
// once it has been written by this package.
package io
