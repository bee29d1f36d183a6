// Package lines is the built-in GL flow-line engine. It must be driven with
// a GL context current on the calling thread.
package lines

import (
	"encoding/json"
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/san-kum/fluxsaver/internal/config"
	"github.com/san-kum/fluxsaver/internal/engine"
	"github.com/san-kum/fluxsaver/internal/engine/lines/field"
)

const Name = "lines"

type Driver struct{}

func New() *Driver { return &Driver{} }

func (Driver) Name() string { return Name }

func (Driver) Create(logical, physical engine.Size, settings string) (engine.Instance, error) {
	s := config.DefaultSettings()
	if strings.TrimSpace(settings) != "" {
		if err := json.Unmarshal([]byte(settings), &s); err != nil {
			return nil, fmt.Errorf("lines: settings: %w", err)
		}
	}
	if s.GridSpacing <= 0 {
		return nil, fmt.Errorf("lines: grid spacing must be positive, got %d", s.GridSpacing)
	}

	inst := &instance{
		field:    field.New(s, physical.Width, physical.Height),
		physical: physical,
		width:    float32(s.LineWidth),
	}
	if err := inst.init(); err != nil {
		inst.Destroy()
		return nil, err
	}
	inst.viewport()
	return inst, nil
}

type instance struct {
	field    *field.Field
	physical engine.Size
	width    float32
	program  uint32
	vao      uint32
	vbo      uint32
	verts    []float32
}

func (i *instance) init() error {
	var err error
	i.program, err = makeProgram(vertexSource, fragmentSource)
	if err != nil {
		return err
	}

	gl.GenVertexArrays(1, &i.vao)
	gl.BindVertexArray(i.vao)
	gl.GenBuffers(1, &i.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, i.vbo)

	const stride = field.FloatsPerVertex * 4
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, stride, unsafe.Pointer(uintptr(0)))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, unsafe.Pointer(uintptr(2*4)))

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	if e := gl.GetError(); e != gl.NO_ERROR {
		return fmt.Errorf("lines: gl error 0x%x during setup", e)
	}
	return nil
}

func (i *instance) Step(t float64) error {
	i.field.Advance(t)
	i.verts = i.field.Vertices(i.verts[:0])
	if len(i.verts) == 0 {
		return nil
	}

	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	gl.UseProgram(i.program)
	gl.BindVertexArray(i.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, i.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(i.verts)*4, gl.Ptr(i.verts), gl.STREAM_DRAW)
	gl.LineWidth(i.width)
	gl.DrawArrays(gl.LINES, 0, int32(len(i.verts)/field.FloatsPerVertex))
	gl.BindVertexArray(0)
	gl.UseProgram(0)

	if e := gl.GetError(); e != gl.NO_ERROR {
		return fmt.Errorf("lines: gl error 0x%x at t=%.2f", e, t)
	}
	return nil
}

func (i *instance) Resize(logical, physical engine.Size) error {
	i.physical = physical
	i.field.Resize(physical.Width, physical.Height)
	i.viewport()
	return nil
}

func (i *instance) viewport() {
	gl.Viewport(0, 0, int32(i.physical.Width), int32(i.physical.Height))
}

func (i *instance) Destroy() {
	if i.vbo != 0 {
		gl.DeleteBuffers(1, &i.vbo)
	}
	if i.vao != 0 {
		gl.DeleteVertexArrays(1, &i.vao)
	}
	if i.program != 0 {
		gl.DeleteProgram(i.program)
	}
	i.vbo, i.vao, i.program = 0, 0, 0
}

const vertexSource = `
#version 410 core
layout(location=0) in vec2 aPos;
layout(location=1) in vec3 aColor;
out vec3 vColor;
void main() {
    vColor = aColor;
    gl_Position = vec4(aPos, 0.0, 1.0);
}
` + "\x00"

const fragmentSource = `
#version 410 core
in vec3 vColor;
out vec4 FragColor;
void main() {
    FragColor = vec4(vColor, 0.9);
}
` + "\x00"

func makeShader(src string, shaderType uint32) (uint32, error) {
	sh := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src)
	defer free()
	gl.ShaderSource(sh, 1, csrc, nil)
	gl.CompileShader(sh)

	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &logLen)
		msg := strings.Repeat("\x00", int(logLen))
		gl.GetShaderInfoLog(sh, logLen, nil, gl.Str(msg))
		gl.DeleteShader(sh)
		return 0, fmt.Errorf("lines: shader compile: %s", strings.TrimRight(msg, "\x00"))
	}
	return sh, nil
}

func makeProgram(vsSrc, fsSrc string) (uint32, error) {
	vs, err := makeShader(vsSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fs, err := makeShader(fsSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return 0, err
	}
	prog := gl.CreateProgram()
	gl.AttachShader(prog, vs)
	gl.AttachShader(prog, fs)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		msg := strings.Repeat("\x00", int(logLen))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(msg))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("lines: program link: %s", strings.TrimRight(msg, "\x00"))
	}
	return prog, nil
}
