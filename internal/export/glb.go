// Package export выгружает вложения мира в glTF 2.0 (GLB) для просмотра
// во внешних редакторах. Каждая маска становится одним мешем, каждый
// воксель одним узлом со смещением, меши общие, как и в кеше.
package export

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/annel0/voxelcore/internal/logging"
	"github.com/annel0/voxelcore/internal/world"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/klauspost/compress/zstd"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Stats - сводка по собранной сцене
type Stats struct {
	Meshes int `json:"meshes"`
	Nodes  int `json:"nodes"`
	Hidden int `json:"hidden"` // полностью скрытые воксели, узел не создаётся
}

// SceneBuilder собирает вложения и строит из них glTF документ.
// Реализует world.Sink, поэтому может передаваться прямо в World.Update.
type SceneBuilder struct {
	mu          sync.Mutex
	name        string
	attachments []world.Attachment
	log         *logging.Logger
}

// NewSceneBuilder создаёт пустой сборщик; name попадает в имя сцены
func NewSceneBuilder(name string) *SceneBuilder {
	if name == "" {
		name = "voxelcore"
	}
	return &SceneBuilder{name: name}
}

// SetLogger задаёт логгер сборщика
func (b *SceneBuilder) SetLogger(l *logging.Logger) {
	b.log = l
}

// Attach запоминает вложение. Безопасен для вызова из нескольких горутин.
func (b *SceneBuilder) Attach(a world.Attachment) error {
	if a.Mesh == nil {
		return fmt.Errorf("attachment %s %s has no mesh", a.Chunk, a.Local)
	}
	b.mu.Lock()
	b.attachments = append(b.attachments, a)
	b.mu.Unlock()
	return nil
}

// Collect забирает текущие вложения мира, не запуская цикл обновления
func (b *SceneBuilder) Collect(w *world.World) {
	w.EachAttachment(func(a world.Attachment) {
		_ = b.Attach(a)
	})
}

// Len возвращает число собранных вложений
func (b *SceneBuilder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.attachments)
}

// Reset очищает собранные вложения
func (b *SceneBuilder) Reset() {
	b.mu.Lock()
	b.attachments = nil
	b.mu.Unlock()
}

// Document строит glTF документ. Узлы идут в порядке (чанк, локальная координата),
// меши в порядке первого появления маски, так что результат не зависит
// от порядка вызовов Attach.
func (b *SceneBuilder) Document() (*gltf.Document, Stats) {
	b.mu.Lock()
	atts := append([]world.Attachment(nil), b.attachments...)
	b.mu.Unlock()

	sort.Slice(atts, func(i, j int) bool {
		if !atts[i].Chunk.Equals(atts[j].Chunk) {
			return atts[i].Chunk.Less(atts[j].Chunk)
		}
		return atts[i].Local.Vec().Less(atts[j].Local.Vec())
	})

	doc := gltf.NewDocument()
	doc.Asset.Generator = "voxelcore"
	doc.Scenes[0].Name = b.name

	var stats Stats
	meshes := make(map[world.FaceMask]uint32)
	for _, a := range atts {
		if a.Mesh.Empty() {
			stats.Hidden++
			continue
		}
		mask := a.Mesh.Mask()
		idx, ok := meshes[mask]
		if !ok {
			idx = writeMesh(doc, a.Mesh)
			meshes[mask] = idx
			stats.Meshes++
		}

		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name:        fmt.Sprintf("%s %s", a.Chunk, a.Local),
			Mesh:        gltf.Index(idx),
			Translation: translation(a.Position),
		})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)-1))
		stats.Nodes++
	}

	b.log.Debug("Сцена %q: мешей %d, узлов %d, скрытых %d", b.name, stats.Meshes, stats.Nodes, stats.Hidden)
	return doc, stats
}

// writeMesh кладёт буферы меша в документ и возвращает индекс glTF меша
func writeMesh(doc *gltf.Document, m *world.Mesh) uint32 {
	positions := toVec3(m.Positions())
	normals := toVec3(m.Normals())
	uvs := make([][2]float32, 0, m.VertexCount())
	for _, uv := range m.UVs() {
		uvs = append(uvs, [2]float32{uv[0], uv[1]})
	}

	pos := modeler.WritePosition(doc, positions)
	nrm := modeler.WriteNormal(doc, normals)
	tex := modeler.WriteTextureCoord(doc, uvs)
	ind := modeler.WriteIndices(doc, m.Indices())

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: fmt.Sprintf("mask %s", m.Mask()),
		Primitives: []*gltf.Primitive{{
			Indices: gltf.Index(ind),
			Attributes: gltf.Attribute{
				gltf.POSITION:   pos,
				gltf.NORMAL:     nrm,
				gltf.TEXCOORD_0: tex,
			},
			Mode: gltf.PrimitiveTriangles,
		}},
	})
	return uint32(len(doc.Meshes) - 1)
}

func toVec3(vs []mgl32.Vec3) [][3]float32 {
	out := make([][3]float32, len(vs))
	for i, v := range vs {
		out[i] = [3]float32(v)
	}
	return out
}

func translation(p mgl32.Vec3) [3]float32 {
	return [3]float32(p)
}

// WriteGLB кодирует документ в бинарный glTF
func WriteGLB(w io.Writer, doc *gltf.Document) error {
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode glb: %w", err)
	}
	return nil
}

// CompressedExt - суффикс файла, при котором GLB пишется через zstd
const CompressedExt = ".zst"

// SaveGLB записывает документ в файл; путь с суффиксом .zst сжимается zstd
func SaveGLB(path string, doc *gltf.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := writeFile(f, path, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeFile(f io.Writer, path string, doc *gltf.Document) error {
	if !strings.HasSuffix(path, CompressedExt) {
		return WriteGLB(f, doc)
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if err := WriteGLB(zw, doc); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// LoadGLB читает GLB (или .glb.zst) обратно в документ
func LoadGLB(path string) (*gltf.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, CompressedExt) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	var doc gltf.Document
	if err := gltf.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &doc, nil
}

// ExportWorld собирает текущие вложения мира и сохраняет их в path
func ExportWorld(w *world.World, path string, log *logging.Logger) (Stats, error) {
	b := NewSceneBuilder("world")
	b.SetLogger(log)
	b.Collect(w)
	doc, stats := b.Document()
	if err := SaveGLB(path, doc); err != nil {
		return stats, err
	}
	log.Info("💾 Мир выгружен в %s: мешей %d, узлов %d", path, stats.Meshes, stats.Nodes)
	return stats, nil
}
