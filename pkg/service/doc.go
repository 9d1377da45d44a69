// Package service provides a typed data access layer over one MongoDB
// collection.
//
// A BaseService is parameterised by its insert payload, its update payload
// and its key type. Service is the common ObjectID keyed form:
//
//	svc, err := service.New[CreateNode, UpdateNode](db, "tree_nodes", service.Config[CreateNode, UpdateNode, primitive.ObjectID]{
//	    Indexes: []service.IndexData{{Keys: "name", IndexOptions: service.IndexOptions{Unique: true}}},
//	})
//
// Writes are checked by validate tags and then by the registered Validators.
// Deletes run the registered DeleteRules around the driver call:
//
//	deny  rules veto the delete
//	pre   rules run before it, e.g. to delete dependants
//	post  rules run after it
//
// Rules receive the ids matched before the delete and a context bound to the
// delete's session. When the deployment supports transactions the whole
// delete, including everything rules do with that context, runs in one
// transaction: started and committed by the service unless the caller's
// session already runs one.
//
// The Database, Collection and Session interfaces are satisfied by
// NewMongoDatabase for a real deployment and by package memdb for tests.
package service
