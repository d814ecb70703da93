package govfs

// Op identifies a dispatched filesystem primitive.
type Op int

// Dispatched filesystem primitives.
const (
	OpOpenRead Op = iota
	OpOpenWrite
	OpOpenDir
	OpStat
	OpUsage
	OpTouch
	OpChmod
	OpChown
	OpRename
	OpRemove
	OpMkdir
	OpMkdirAll
	OpRmdir
)

// invalidation selects when a dispatched operation drops the locator's
// cached resolutions for its identifiers.
type invalidation int

const (
	// invalidateNever skips cache invalidation.
	invalidateNever invalidation = iota

	// invalidateOnSuccess invalidates only after a successful native call.
	invalidateOnSuccess

	// invalidateAlways invalidates after any attempted native call,
	// successful or not.
	invalidateAlways
)

// opInfo carries the static dispatch properties of an [Op]: one access mode
// per identifier argument, whether the primitive mutates and which
// cache-invalidation rule applies.
type opInfo struct {
	name       string
	modes      []AccessMode
	mutating   bool
	invalidate invalidation
}

// opTable is the single source of truth for how each primitive resolves and
// invalidates. Dispatch consults it so the invalidation rule is enforced in
// exactly one place.
var opTable = map[Op]opInfo{
	OpOpenRead:  {name: "open-read", modes: []AccessMode{ModeRead}},
	OpOpenWrite: {name: "open-write", modes: []AccessMode{ModeWrite}, mutating: true, invalidate: invalidateOnSuccess},
	OpOpenDir:   {name: "open-dir", modes: []AccessMode{ModeRead}},
	OpStat:      {name: "stat", modes: []AccessMode{ModeRead}},
	OpUsage:     {name: "usage", modes: []AccessMode{ModeRead}},
	OpTouch:     {name: "touch", modes: []AccessMode{ModeRead}, mutating: true},
	OpChmod:     {name: "chmod", modes: []AccessMode{ModeRead}, mutating: true},
	OpChown:     {name: "chown", modes: []AccessMode{ModeRead}, mutating: true},
	OpRename:    {name: "rename", modes: []AccessMode{ModeRead, ModeWrite}, mutating: true, invalidate: invalidateOnSuccess},
	OpRemove:    {name: "remove", modes: []AccessMode{ModeRead}, mutating: true, invalidate: invalidateOnSuccess},
	OpMkdir:     {name: "mkdir", modes: []AccessMode{ModeWrite}, mutating: true, invalidate: invalidateAlways},
	OpMkdirAll:  {name: "mkdir-all", modes: []AccessMode{ModeCreateDir}, mutating: true, invalidate: invalidateAlways},
	OpRmdir:     {name: "rmdir", modes: []AccessMode{ModeRead}, mutating: true, invalidate: invalidateAlways},
}

// String returns the primitive's short name.
func (op Op) String() string {
	if info, ok := opTable[op]; ok {
		return info.name
	}

	return "unknown"
}

// Mutating reports whether the primitive changes existence, content or
// metadata of a resource.
func (op Op) Mutating() bool {
	return opTable[op].mutating
}

// OpOption adjusts the diagnostics of a single dispatched operation.
type OpOption func(*opSettings)

type opSettings struct {
	loud bool
}

// Loud makes the operation emit a warning-level diagnostic when it fails.
// Failures are silent by default, matching native filesystem conventions;
// the option never changes the returned result.
func Loud() OpOption {
	return func(s *opSettings) {
		s.loud = true
	}
}

func newOpSettings(opts []OpOption) opSettings {
	var settings opSettings

	for _, opt := range opts {
		opt(&settings)
	}

	return settings
}

// dispatch resolves the operation's identifiers per the [opTable] modes,
// runs the native call and applies the operation's invalidation rule. The
// rule fires before dispatch returns, so no later resolution can observe
// stale cache state for the touched identifiers. Resolution failures skip
// the native call and never invalidate.
func (f *Filesystem) dispatch(op Op, ids []Identifier, settings opSettings, native func(paths []string) error) error {
	info := opTable[op]

	paths := make([]string, len(ids))
	for i, id := range ids {
		path, err := f.Resolve(id, info.modes[i])
		if err != nil {
			return f.fail(info, ids, settings, err)
		}
		paths[i] = path
	}

	err := native(paths)

	if info.invalidate == invalidateAlways || (info.invalidate == invalidateOnSuccess && err == nil) {
		f.invalidate(ids)
	}

	if err != nil {
		return f.fail(info, ids, settings, err)
	}

	return nil
}

// invalidate notifies the locator for every touched identifier.
func (f *Filesystem) invalidate(ids []Identifier) {
	if f.Locator == nil {
		return
	}

	for _, id := range ids {
		f.Locator.Invalidate(id)
	}
}

// fail emits the optional loud diagnostic and returns err unchanged.
func (f *Filesystem) fail(info opInfo, ids []Identifier, settings opSettings, err error) error {
	if settings.loud {
		args := []any{"op", info.name, "id", ids[0].String()}
		if len(ids) > 1 {
			args = append(args, "to", ids[1].String())
		}
		args = append(args, "err", err)

		f.log().Warn("Operation failed", args...)
	}

	return err
}
