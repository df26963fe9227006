// Package neo4j loads a map's connectivity network and routed paths into a
// Neo4j database.
//
// The export writes three kinds of records, all scoped by the map's uuid so
// that several maps can share one database:
//
//	(:FlatmapNode {map, id, models, junction, x, y})
//	(:FlatmapNode)-[:CENTRELINE {id, feature, length, capacity}]->(:FlatmapNode)
//	(:FlatmapPath {map, id, type, label, models, length})-[:ROUTED_OVER {seq, edge}]->(:FlatmapNode)
//
// Every write is a batched UNWIND ... MERGE statement, so re-running an
// export updates records in place. [Loader.Clean] removes a map's records
// before a full reload.
package neo4j
