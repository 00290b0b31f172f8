// Package document renders a compiled plan into the orchestration
// engine's nested folder document.
//
// The document shape is
//
//	{ "<folder>": { "Type": "Folder", "ControlmServer": ..., "OrderMethod": ...,
//	                "<job object name>": { "Type": "Job:...", ... },
//	                "<phase>": { "Type": "SubFolder", "<job object name>": {...} } } }
//
// Jobs and subfolders carry their events under eventsToAdd, eventsToWaitFor
// and eventsToDelete. Marshal output is byte-identical for identical plans;
// Hash gives the document's content-addressed identity.
package document
