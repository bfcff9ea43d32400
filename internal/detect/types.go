package detect

// VehicleClass тип транспортного средства из фиксированного набора классов детектора
type VehicleClass string

// Поддерживаемые классы транспортных средств (классы COCO 2, 3, 5, 7)
const (
	ClassCar        VehicleClass = "car"
	ClassMotorcycle VehicleClass = "motorcycle"
	ClassBus        VehicleClass = "bus"
	ClassTruck      VehicleClass = "truck"
)

// KnownClass проверяет, относится ли класс к поддерживаемым типам транспорта
func KnownClass(class VehicleClass) bool {
	switch class {
	case ClassCar, ClassMotorcycle, ClassBus, ClassTruck:
		return true
	}
	return false
}

// Point точка в пиксельных координатах кадра
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BBox ограничивающая рамка в пиксельных координатах (x1 < x2, y1 < y2)
type BBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Area возвращает площадь рамки. Некорректная геометрия (x2 <= x1 или y2 <= y1)
// считается нулевой площадью
func (b BBox) Area() int {
	if b.X2 <= b.X1 || b.Y2 <= b.Y1 {
		return 0
	}
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

// Center возвращает центральную точку рамки
func (b BBox) Center() Point {
	return Point{
		X: float64(b.X1+b.X2) / 2,
		Y: float64(b.Y1+b.Y2) / 2,
	}
}

// Detection обнаружение транспортного средства на одном кадре.
// Живет в пределах одного кадра и не переиспользуется между кадрами
type Detection struct {
	BBox       BBox         `json:"bbox"`
	Confidence float64      `json:"confidence"`
	Class      VehicleClass `json:"class_name"`
}

// Center возвращает центр обнаружения
func (d Detection) Center() Point {
	return d.BBox.Center()
}
