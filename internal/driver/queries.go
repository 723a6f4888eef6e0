package driver

const (
	SaveAxisQuery = `
		MERGE (a:TimelineAxis {id: $id})
		SET a.name = $name,
			a.code = $code,
			a.axisType = $axisType,
			a.description = $description,
			a.parentAxisId = $parentAxisId,
			a.originSegmentId = $originSegmentId,
			a.originOffsetYears = $originOffsetYears,
			a.policy = $policy,
			a.sortOrder = $sortOrder,
			a.startTick = $startTick,
			a.endTick = $endTick,
			a.status = $status,
			a.notes = $notes,
			a.tags = $tags,
			a.createdAt = $createdAt,
			a.updatedAt = $updatedAt
		RETURN a.id AS id
	`

	SaveEraQuery = `
		MERGE (e:TimelineEra {id: $id})
		SET e.axisId = $axisId,
			e.name = $name,
			e.code = $code,
			e.summary = $summary,
			e.description = $description,
			e.order = $order,
			e.startTick = $startTick,
			e.endTick = $endTick,
			e.status = $status,
			e.notes = $notes,
			e.tags = $tags,
			e.createdAt = $createdAt,
			e.updatedAt = $updatedAt
		RETURN e.id AS id
	`

	SaveSegmentQuery = `
		MERGE (s:TimelineSegment {id: $id})
		SET s.axisId = $axisId,
			s.eraId = $eraId,
			s.name = $name,
			s.durationYears = $durationYears,
			s.code = $code,
			s.summary = $summary,
			s.description = $description,
			s.order = $order,
			s.startTick = $startTick,
			s.endTick = $endTick,
			s.status = $status,
			s.notes = $notes,
			s.tags = $tags,
			s.createdAt = $createdAt,
			s.updatedAt = $updatedAt
		RETURN s.id AS id
	`

	SaveMarkerQuery = `
		MERGE (m:TimelineMarker {id: $id})
		SET m.axisId = $axisId,
			m.eraId = $eraId,
			m.segmentId = $segmentId,
			m.label = $label,
			m.tick = $tick,
			m.markerType = $markerType,
			m.description = $description,
			m.eventRefId = $eventRefId,
			m.createdAt = $createdAt,
			m.updatedAt = $updatedAt
		RETURN m.id AS id
	`

	SaveStateChangeQuery = `
		MERGE (c:StateChange {id: $id})
		SET c.axisId = $axisId,
			c.eraId = $eraId,
			c.segmentId = $segmentId,
			c.markerId = $markerId,
			c.eventId = $eventId,
			c.subjectType = $subjectType,
			c.subjectId = $subjectId,
			c.fieldPath = $fieldPath,
			c.changeType = $changeType,
			c.oldValue = $oldValue,
			c.newValue = $newValue,
			c.effectiveTick = $effectiveTick,
			c.detail = $detail,
			c.notes = $notes,
			c.tags = $tags,
			c.status = $status,
			c.createdAt = $createdAt,
			c.updatedAt = $updatedAt
		RETURN c.id AS id
	`

	GetAxisQuery    = `MATCH (a:TimelineAxis {id: $id}) RETURN properties(a) AS props`
	GetEraQuery     = `MATCH (e:TimelineEra {id: $id}) RETURN properties(e) AS props`
	GetSegmentQuery = `MATCH (s:TimelineSegment {id: $id}) RETURN properties(s) AS props`
	GetMarkerQuery  = `MATCH (m:TimelineMarker {id: $id}) RETURN properties(m) AS props`
	GetChangeQuery  = `MATCH (c:StateChange {id: $id}) RETURN properties(c) AS props`

	// Optimistic uniqueness check for the single main axis. Counts other
	// main axes; the excludeId keeps an update from conflicting with
	// itself.
	CountMainAxesQuery = `
		MATCH (a:TimelineAxis {axisType: 'main'})
		WHERE a.id <> $excludeId
		RETURN count(a) AS total
	`

	// Axis deletion cascade, run inside one write transaction.
	DetachChildAxesQuery = `
		MATCH (c:TimelineAxis {parentAxisId: $id})
		SET c.parentAxisId = null,
			c.originSegmentId = null,
			c.originOffsetYears = null
	`
	DeleteAxisMarkersQuery  = `MATCH (m:TimelineMarker {axisId: $id}) DETACH DELETE m`
	DeleteAxisSegmentsQuery = `MATCH (s:TimelineSegment {axisId: $id}) DETACH DELETE s`
	DeleteAxisErasQuery     = `MATCH (e:TimelineEra {axisId: $id}) DETACH DELETE e`
	DeleteAxisQuery         = `MATCH (a:TimelineAxis {id: $id}) DETACH DELETE a`

	DeleteEraMarkersQuery  = `MATCH (m:TimelineMarker {eraId: $id}) DETACH DELETE m`
	DeleteEraSegmentsQuery = `MATCH (s:TimelineSegment {eraId: $id}) DETACH DELETE s`
	DeleteEraQuery         = `MATCH (e:TimelineEra {id: $id}) DETACH DELETE e`

	DeleteSegmentMarkersQuery = `MATCH (m:TimelineMarker {segmentId: $id}) DETACH DELETE m`
	DeleteSegmentQuery        = `MATCH (s:TimelineSegment {id: $id}) DETACH DELETE s`

	DeleteMarkerQuery = `MATCH (m:TimelineMarker {id: $id}) DETACH DELETE m`

	// An event may be referenced by at most one marker; assigning it to
	// one clears it from any other.
	ClearOtherMarkerEventRefQuery = `
		MATCH (m:TimelineMarker {eventRefId: $eventRefId})
		WHERE m.id <> $markerId
		SET m.eventRefId = null
	`

	// Relationship sync for ledger rows: each edge is cleared then
	// relinked so an update never leaves a stale edge behind.
	ClearMarkerChangeEdgeQuery = `
		MATCH (:TimelineMarker)-[r:MARKS_CHANGE]->(c:StateChange {id: $id})
		DELETE r
	`
	LinkMarkerChangeQuery = `
		MATCH (m:TimelineMarker {id: $markerId})
		MATCH (c:StateChange {id: $id})
		MERGE (m)-[:MARKS_CHANGE]->(c)
	`
	ClearEventChangeEdgeQuery = `
		MATCH (:Event)-[r:TRIGGERS]->(c:StateChange {id: $id})
		DELETE r
	`
	LinkEventChangeQuery = `
		MATCH (e:Event {id: $eventId})
		MATCH (c:StateChange {id: $id})
		MERGE (e)-[:TRIGGERS]->(c)
	`
	ClearSubjectChangeEdgeQuery = `
		MATCH (c:StateChange {id: $id})-[r:APPLIES_TO]->()
		DELETE r
	`

	DeleteChangeQuery = `MATCH (c:StateChange {id: $id}) DETACH DELETE c`
)
