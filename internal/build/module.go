package build

// Module is one pluggable build-pipeline participant (spec §4.9),
// grounded on the reference's `trait Module` (`init`/`check`/
// `pre_build`/`post_build`/`pre_release`/`post_release`, with the
// `build`/`release` steps themselves owned by the executor rather than
// by modules — matching `modules::pbo::build`/`modules::archive::release`
// being called directly from `Executor::build`/`Executor::release`
// rather than through the trait). Every method receives the shared
// Context; a phase with nothing to do simply embeds NoopModule.
type Module interface {
	Name() string
	Init(ctx *Context) error
	Check(ctx *Context) error
	PreBuild(ctx *Context) error
	PostBuild(ctx *Context) error
	PreRelease(ctx *Context) error
	PostRelease(ctx *Context) error
}

// NoopModule implements every Module method as a no-op, so a concrete
// module can embed it and only override the phases it cares about
// (matching the reference's per-module pattern of most `impl Module`
// blocks leaving most methods at their trait-default `Ok(())` body).
type NoopModule struct{}

func (NoopModule) Init(*Context) error        { return nil }
func (NoopModule) Check(*Context) error        { return nil }
func (NoopModule) PreBuild(*Context) error     { return nil }
func (NoopModule) PostBuild(*Context) error    { return nil }
func (NoopModule) PreRelease(*Context) error   { return nil }
func (NoopModule) PostRelease(*Context) error  { return nil }
