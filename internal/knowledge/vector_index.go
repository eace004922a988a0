package knowledge

import (
	"bufio"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	apperrors "github.com/contractqa/backend-go/internal/errors"
)

// 向量文件头：magic + 版本 + 构建ID + 维度 + 条数，数据区为小端float32
// 构建ID同时写入元数据文件，加载时校验两个文件出自同一次Save
var vectorFileMagic = [4]byte{'C', 'Q', 'V', 'X'}

const vectorFileVersion uint32 = 1

// metadataFile 元数据文件结构
type metadataFile struct {
	BuildID uint64  `json:"build_id"`
	Chunks  []Chunk `json:"chunks"`
}

// Neighbor 单条近邻检索结果
// Distance为平方欧氏距离，Position为向量在索引中的插入位置
type Neighbor struct {
	Distance float64
	Position int
}

// FlatIndex 扁平L2向量索引
// 向量与元数据按位置对齐：vectors[i]对应metadata[i]，保存/加载必须成对进行
type FlatIndex struct {
	dim      int
	vectors  [][]float32
	metadata []Chunk
}

// NewFlatIndex 创建空索引
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{}
}

// Build 用整批向量和元数据重建索引，替换全部既有内容
// 两者长度不一致属于调用方bug，必须报错而不是截断
func (idx *FlatIndex) Build(vectors [][]float32, metadata []Chunk) error {
	if len(vectors) != len(metadata) {
		return fmt.Errorf("vectors (%d) and metadata (%d) length mismatch", len(vectors), len(metadata))
	}
	if len(vectors) == 0 {
		idx.dim = 0
		idx.vectors = nil
		idx.metadata = nil
		return nil
	}

	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("vector dimension must be positive")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}

	idx.dim = dim
	idx.vectors = vectors
	idx.metadata = metadata
	return nil
}

// Size 返回索引中的向量条数
func (idx *FlatIndex) Size() int {
	return len(idx.vectors)
}

// Dimensions 返回索引向量维度，空索引为0
func (idx *FlatIndex) Dimensions() int {
	return idx.dim
}

// Metadata 按位置取元数据
func (idx *FlatIndex) Metadata(position int) (Chunk, bool) {
	if position < 0 || position >= len(idx.metadata) {
		return Chunk{}, false
	}
	return idx.metadata[position], true
}

// Search 返回与query最近的topK条结果，按距离升序排列
// 距离相同按插入位置升序；topK超过索引大小时返回全部
func (idx *FlatIndex) Search(query []float32, topK int) ([]Neighbor, error) {
	if len(idx.vectors) == 0 {
		return nil, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), idx.dim)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}

	neighbors := make([]Neighbor, len(idx.vectors))
	for i, v := range idx.vectors {
		neighbors[i] = Neighbor{
			Distance: squaredL2(query, v),
			Position: i,
		}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance == neighbors[j].Distance {
			return neighbors[i].Position < neighbors[j].Position
		}
		return neighbors[i].Distance < neighbors[j].Distance
	})

	if topK > len(neighbors) {
		topK = len(neighbors)
	}
	return neighbors[:topK], nil
}

// Save 持久化索引为向量文件+元数据文件
// 先写临时文件再重命名；元数据先提交，向量文件后提交，因此磁盘上
// 绝不会出现新向量配旧元数据的组合。两个文件携带相同的构建ID，
// 加载时即使条数凑巧相等，错配的文件对也会被识破
func (idx *FlatIndex) Save(vectorPath, metadataPath string) error {
	for _, p := range []string{vectorPath, metadataPath} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
	}

	buildID, err := newBuildID()
	if err != nil {
		return err
	}

	vecTmp := vectorPath + ".tmp"
	if err := idx.writeVectors(vecTmp, buildID); err != nil {
		os.Remove(vecTmp)
		return err
	}

	metaTmp := metadataPath + ".tmp"
	metaData, err := json.Marshal(metadataFile{BuildID: buildID, Chunks: idx.metadata})
	if err != nil {
		os.Remove(vecTmp)
		return err
	}
	if err := os.WriteFile(metaTmp, metaData, 0o644); err != nil {
		os.Remove(vecTmp)
		return err
	}

	if err := os.Rename(metaTmp, metadataPath); err != nil {
		os.Remove(vecTmp)
		os.Remove(metaTmp)
		return err
	}
	return os.Rename(vecTmp, vectorPath)
}

func newBuildID() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("failed to generate build id: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (idx *FlatIndex) writeVectors(path string, buildID uint64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.Write(vectorFileMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, vectorFileVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, buildID); err != nil {
		return err
	}
	header := []uint32{uint32(idx.dim), uint32(len(idx.vectors))}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for _, vec := range idx.vectors {
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// Load 从持久化文件对恢复索引
// 任一文件缺失返回NotFound并指明路径；构建ID或条数不一致立即失败
func (idx *FlatIndex) Load(vectorPath, metadataPath string) error {
	for _, p := range []string{vectorPath, metadataPath} {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				return apperrors.NewNotFound("index file not found: %s", p)
			}
			return err
		}
	}

	buildID, dim, vectors, err := readVectors(vectorPath)
	if err != nil {
		return err
	}

	metaData, err := os.ReadFile(metadataPath)
	if err != nil {
		return err
	}
	var meta metadataFile
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return fmt.Errorf("failed to parse metadata file %s: %w", metadataPath, err)
	}

	if meta.BuildID != buildID {
		return fmt.Errorf("index corrupted: vector file and metadata file are from different builds")
	}
	if len(vectors) != len(meta.Chunks) {
		return fmt.Errorf("index corrupted: %d vectors but %d metadata records", len(vectors), len(meta.Chunks))
	}

	idx.dim = dim
	idx.vectors = vectors
	idx.metadata = meta.Chunks
	return nil
}

func readVectors(path string) (uint64, int, [][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return 0, 0, nil, fmt.Errorf("failed to read vector file %s: %w", path, err)
	}
	if magic != vectorFileMagic {
		return 0, 0, nil, fmt.Errorf("invalid vector file %s: bad magic", path)
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return 0, 0, nil, fmt.Errorf("failed to read vector file %s: %w", path, err)
	}
	if version != vectorFileVersion {
		return 0, 0, nil, fmt.Errorf("unsupported vector file version %d", version)
	}

	var buildID uint64
	if err := binary.Read(r, binary.LittleEndian, &buildID); err != nil {
		return 0, 0, nil, fmt.Errorf("failed to read vector file %s: %w", path, err)
	}

	var dim, count uint32
	for _, p := range []*uint32{&dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return 0, 0, nil, fmt.Errorf("failed to read vector file %s: %w", path, err)
		}
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return 0, 0, nil, fmt.Errorf("vector file %s truncated: %w", path, err)
		}
		vectors[i] = vec
	}
	return buildID, int(dim), vectors, nil
}

// squaredL2 平方欧氏距离，float64累加避免精度损失
func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// DistanceToSimilarity 距离到相似度的固定变换：1/(1+d)，距离0映射为1
func DistanceToSimilarity(distance float64) float64 {
	return 1 / (1 + distance)
}
