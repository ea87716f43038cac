// Package services implements the driving ports on top of the driven ports.
//
// IndexingService runs normalise, chunk, embed and replace for one document.
// AnswerService embeds a question, retrieves, assembles context and generates.
// StatusService and SettingsService back the status and config surfaces.
// Embedder and IndexManager are shared by indexing and answering so queries
// use the same model and index as the records they are compared against.
package services
