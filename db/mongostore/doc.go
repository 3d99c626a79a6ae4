// Package mongostore implements db.Store on MongoDB.
//
// Resource and request ids are ObjectID hex strings; a request keeps its
// resource_id as the plain hex string. Unlike the SQL backend there is no
// partial unique index on active requests, so two concurrent creates for the
// same (resource, borrower) can both succeed.
package mongostore
