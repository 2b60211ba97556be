package sim

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/blockstage/internal/capability"
)

// Dispatch implements capability.Dispatcher against the world. It is the
// single entry point for script-requested mutations on both execution
// paths. Safe for concurrent use.
func (r *Runtime) Dispatch(name string, args []any) (any, error) {
	switch name {
	case capability.SetProperty:
		return r.capSetProperty(args)
	case capability.GetProperty:
		return r.capGetProperty(args)
	case capability.Emit:
		return r.capEmit(args)
	case capability.Log:
		return r.capLog(args)
	case capability.LoadImage:
		return r.capLoadImage(args)
	case capability.CreateSprite:
		return r.capCreateSprite(args)
	case capability.AddObject:
		return r.capAddObject(args)
	case capability.RemoveObject:
		return r.capRemoveObject(args)
	default:
		return nil, fmt.Errorf("%w: %s", capability.ErrUnknown, name)
	}
}

// capSetProperty is best effort: a missing object or malformed arguments
// are a silent no-op, never an error.
func (r *Runtime) capSetProperty(args []any) (any, error) {
	id, okID := capability.StringArg(args, 0)
	prop, okProp := capability.StringArg(args, 1)
	if !okID || !okProp {
		return nil, nil
	}
	r.world.SetObjectProperty(id, prop, capability.Arg(args, 2))
	return nil, nil
}

// capGetProperty returns nil for a missing object or property, which the
// script observes as undefined.
func (r *Runtime) capGetProperty(args []any) (any, error) {
	id, okID := capability.StringArg(args, 0)
	prop, okProp := capability.StringArg(args, 1)
	if !okID || !okProp {
		return nil, nil
	}
	v, ok := r.world.GetObjectProperty(id, prop)
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (r *Runtime) capEmit(args []any) (any, error) {
	event, ok := capability.StringArg(args, 0)
	if !ok {
		return nil, errors.New("emit: event name must be a string")
	}
	var rest []any
	if len(args) > 1 {
		rest = args[1:]
	}
	r.Emit(event, rest...)
	return nil, nil
}

func (r *Runtime) capLog(args []any) (any, error) {
	r.scriptLog.Info(formatLogArgs(args))
	return nil, nil
}

// capLoadImage treats every failure as recoverable: the script keeps
// running without the asset and the problem lands in the log.
func (r *Runtime) capLoadImage(args []any) (any, error) {
	id, ok := capability.StringArg(args, 0)
	if !ok {
		return nil, errors.New("loadImage: asset id must be a string")
	}
	if err := r.assets.Load(id); err != nil {
		r.logger.Warn("image load failed", "asset", id, "err", err)
	}
	return nil, nil
}

// capCreateSprite creates a sprite object sized to the natural dimensions
// of an already-loaded image. An unloaded image id logs a warning and
// mutates nothing.
func (r *Runtime) capCreateSprite(args []any) (any, error) {
	id, okID := capability.StringArg(args, 0)
	x, _ := capability.FloatArg(args, 1)
	y, _ := capability.FloatArg(args, 2)
	imageID, okImg := capability.StringArg(args, 3)
	if !okID || !okImg {
		return nil, errors.New("createSprite: object id and image id must be strings")
	}
	img, ok := r.assets.Image(imageID)
	if !ok {
		r.logger.Warn("createSprite before image load, ignoring", "object", id, "image", imageID)
		return nil, nil
	}
	r.world.AddObject(&Object{
		ID:    id,
		Kind:  KindSprite,
		X:     x,
		Y:     y,
		W:     float64(img.Width),
		H:     float64(img.Height),
		Image: imageID,
	})
	return nil, nil
}

// capAddObject builds an object from a JSON-shaped specification and
// returns its id, generated when the spec has none.
func (r *Runtime) capAddObject(args []any) (any, error) {
	spec, ok := capability.Arg(args, 0).(map[string]any)
	if !ok {
		return nil, errors.New("addObject: expected an object specification")
	}
	o, err := ObjectFromMap(spec)
	if err != nil {
		return nil, err
	}
	r.world.AddObject(o)
	return o.ID, nil
}

func (r *Runtime) capRemoveObject(args []any) (any, error) {
	id, ok := capability.StringArg(args, 0)
	if !ok {
		return nil, nil
	}
	r.world.RemoveObject(id)
	return nil, nil
}
