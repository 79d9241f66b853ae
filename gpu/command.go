package gpu

import "fmt"

type Vec4 [4]float32

// Kernel names a compute kernel.
type Kernel string

// CommandBuffer receives compute parameters and dispatches.
type CommandBuffer interface {
	SetVector(k Kernel, name string, v Vec4)
	SetVectorArray(k Kernel, name string, v []Vec4)
	SetFloat(k Kernel, name string, f float32)
	SetTexture(k Kernel, name string, t Texture)
	// SetAsset binds an asset-backed texture (cloud map, flowmap) by reference.
	SetAsset(k Kernel, name, asset string)
	SetKeyword(k Kernel, keyword string, on bool)
	Dispatch(k Kernel, x, y, z int)
}

type CommandKind uint8

const (
	CmdVector CommandKind = iota + 1
	CmdVectorArray
	CmdFloat
	CmdTexture
	CmdAsset
	CmdKeyword
	CmdDispatch
)

// Command is one recorded call.
type Command struct {
	Kind    CommandKind
	Kernel  Kernel
	Name    string
	Vectors []Vec4
	Float   float32
	Texture Texture
	Asset   string
	On      bool
	Groups  [3]int
}

func (c Command) String() string {
	switch c.Kind {
	case CmdDispatch:
		return fmt.Sprintf("dispatch %s %dx%dx%d", c.Kernel, c.Groups[0], c.Groups[1], c.Groups[2])
	case CmdKeyword:
		return fmt.Sprintf("keyword %s %s=%v", c.Kernel, c.Name, c.On)
	default:
		return fmt.Sprintf("set %s %s", c.Kernel, c.Name)
	}
}

// Recorder is a CommandBuffer that keeps every call in order.
type Recorder struct {
	Commands []Command
}

var _ CommandBuffer = (*Recorder)(nil)

func (r *Recorder) SetVector(k Kernel, name string, v Vec4) {
	r.Commands = append(r.Commands, Command{Kind: CmdVector, Kernel: k, Name: name, Vectors: []Vec4{v}})
}

func (r *Recorder) SetVectorArray(k Kernel, name string, v []Vec4) {
	cp := append([]Vec4(nil), v...)
	r.Commands = append(r.Commands, Command{Kind: CmdVectorArray, Kernel: k, Name: name, Vectors: cp})
}

func (r *Recorder) SetFloat(k Kernel, name string, f float32) {
	r.Commands = append(r.Commands, Command{Kind: CmdFloat, Kernel: k, Name: name, Float: f})
}

func (r *Recorder) SetTexture(k Kernel, name string, t Texture) {
	r.Commands = append(r.Commands, Command{Kind: CmdTexture, Kernel: k, Name: name, Texture: t})
}

func (r *Recorder) SetAsset(k Kernel, name, asset string) {
	r.Commands = append(r.Commands, Command{Kind: CmdAsset, Kernel: k, Name: name, Asset: asset})
}

func (r *Recorder) SetKeyword(k Kernel, keyword string, on bool) {
	r.Commands = append(r.Commands, Command{Kind: CmdKeyword, Kernel: k, Name: keyword, On: on})
}

func (r *Recorder) Dispatch(k Kernel, x, y, z int) {
	r.Commands = append(r.Commands, Command{Kind: CmdDispatch, Kernel: k, Groups: [3]int{x, y, z}})
}

// Dispatches returns only the dispatch commands.
func (r *Recorder) Dispatches() []Command {
	var out []Command
	for _, c := range r.Commands {
		if c.Kind == CmdDispatch {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the last command setting name on kernel k.
func (r *Recorder) Find(k Kernel, name string) (Command, bool) {
	for i := len(r.Commands) - 1; i >= 0; i-- {
		c := r.Commands[i]
		if c.Kernel == k && c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

func (r *Recorder) Reset() { r.Commands = r.Commands[:0] }

// ThreadGroups is the number of groups of size group needed to cover size.
func ThreadGroups(size, group int) int {
	return (size + group - 1) / group
}
