// Package syntax provides types for the identifiers used in Web API paths.
//
// These are simple string alias types for verifying the syntax of entity set names, column and relationship names, record IDs, and language codes before they are concatenated in to request URLs. They do not check anything against the portal's table permissions or metadata.
package syntax
