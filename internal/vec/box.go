package vec

// Box - выровненный по осям параллелепипед в координатах вокселей.
// Границы включительные: Min и Max сами принадлежат области.
type Box struct {
	Min Vec3
	Max Vec3
}

// PointBox создаёт область, состоящую из одной точки
func PointBox(p Vec3) Box {
	return Box{Min: p, Max: p}
}

// Extend возвращает область, расширенную так, чтобы она содержала p.
// Область никогда не сужается.
func (b Box) Extend(p Vec3) Box {
	return Box{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Contains проверяет, лежит ли точка внутри области
func (b Box) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Size возвращает размер области по каждой оси (в вокселях)
func (b Box) Size() Vec3 {
	return Vec3{
		X: b.Max.X - b.Min.X + 1,
		Y: b.Max.Y - b.Min.Y + 1,
		Z: b.Max.Z - b.Min.Z + 1,
	}
}
