package generate

func (g *Generators) foreignKey(req Request) Decision {
	target := req.Field.Target
	if target == nil || g.refs == nil {
		g.logger.Warn("foreign key has no resolvable target", "field", fieldKey(req))
		return Null
	}
	id, ok := g.refs.RandomID(target)
	if !ok {
		g.logger.Warn("could not find related instance, leaving null",
			"field", fieldKey(req), "target", target.Key())
		return Null
	}
	return Value(id)
}
